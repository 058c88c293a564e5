package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startBroker(t *testing.T) *ChannelBroker {
	t.Helper()
	broker := NewChannelBroker()
	go broker.Start()
	t.Cleanup(broker.Close)
	return broker
}

func event(table string, kind Kind, payload map[string]any) ChangeEvent {
	raw, _ := json.Marshal(payload)
	return ChangeEvent{Table: table, Kind: kind, Payload: raw}
}

func receive(t *testing.T, sub *Subscription) ChangeEvent {
	t.Helper()
	select {
	case ev := <-sub.C():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return ChangeEvent{}
	}
}

func TestPublishReachesTableSubscribers(t *testing.T) {
	broker := startBroker(t)
	sub := broker.Subscribe(TableMessages, nil)
	defer sub.Unsubscribe()

	require.NoError(t, broker.Publish(context.Background(),
		event(TableMessages, KindInsert, map[string]any{"id": "m1"})))

	ev := receive(t, sub)
	assert.Equal(t, KindInsert, ev.Kind)
}

func TestOtherTableEventsNotDelivered(t *testing.T) {
	broker := startBroker(t)
	sub := broker.Subscribe(TableMessages, nil)
	defer sub.Unsubscribe()

	require.NoError(t, broker.Publish(context.Background(),
		event(TableParticipants, KindInsert, map[string]any{"user_id": "u1"})))

	select {
	case <-sub.C():
		t.Fatal("event of another table must not be delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFilterMatchesColumn(t *testing.T) {
	broker := startBroker(t)
	sub := broker.Subscribe(TableMessages, &Filter{Column: "conversation_id", Equals: "c1"})
	defer sub.Unsubscribe()

	require.NoError(t, broker.Publish(context.Background(),
		event(TableMessages, KindInsert, map[string]any{"id": "m1", "conversation_id": "c2"})))
	require.NoError(t, broker.Publish(context.Background(),
		event(TableMessages, KindInsert, map[string]any{"id": "m2", "conversation_id": "c1"})))

	ev := receive(t, sub)
	var row map[string]string
	require.NoError(t, json.Unmarshal(ev.Payload, &row))
	assert.Equal(t, "m2", row["id"])
}

func TestUnsubscribeStopsDeliveryAndClosesChannel(t *testing.T) {
	broker := startBroker(t)
	sub := broker.Subscribe(TableMessages, nil)

	sub.Unsubscribe()
	// 重复退订必须安全
	sub.Unsubscribe()

	_, ok := <-sub.C()
	assert.False(t, ok, "channel must be closed after unsubscribe")

	require.NoError(t, broker.Publish(context.Background(),
		event(TableMessages, KindInsert, map[string]any{"id": "m1"})))
	time.Sleep(50 * time.Millisecond)
}

func TestFanOutToMultipleSubscribers(t *testing.T) {
	broker := startBroker(t)
	first := broker.Subscribe(TableMessages, nil)
	second := broker.Subscribe(TableMessages, nil)
	defer first.Unsubscribe()
	defer second.Unsubscribe()

	require.NoError(t, broker.Publish(context.Background(),
		event(TableMessages, KindUpdate, map[string]any{"id": "m1"})))

	assert.Equal(t, KindUpdate, receive(t, first).Kind)
	assert.Equal(t, KindUpdate, receive(t, second).Kind)
}

func TestFilterRejectsMalformedPayload(t *testing.T) {
	f := &Filter{Column: "conversation_id", Equals: "c1"}
	assert.False(t, f.Matches(json.RawMessage("not json")))

	var nilFilter *Filter
	assert.True(t, nilFilter.Matches(json.RawMessage("anything")))
}
