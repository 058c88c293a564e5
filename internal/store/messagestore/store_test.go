package messagestore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsy/internal/feed"
	"chatsy/internal/model"
	"chatsy/pkg/errorx"
)

// fakeBackend 内存后端，可注入错误
type fakeBackend struct {
	messages map[string][]model.Message
	sendErr  error
	nextId   int
	listHook func() // 拉取返回前调用，用于模拟拉取期间发生的并发事件
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{messages: make(map[string][]model.Message)}
}

func (b *fakeBackend) ListMessages(ctx context.Context, conversationId string) ([]model.Message, error) {
	out := make([]model.Message, len(b.messages[conversationId]))
	copy(out, b.messages[conversationId])
	if b.listHook != nil {
		b.listHook()
	}
	return out, nil
}

func (b *fakeBackend) SendMessage(ctx context.Context, conversationId, senderId, content string, att *Attachment) (*model.Message, error) {
	if b.sendErr != nil {
		return nil, b.sendErr
	}
	b.nextId++
	message := model.Message{
		Id:             string(rune('a' + b.nextId)),
		ConversationId: conversationId,
		SenderId:       senderId,
		Content:        content,
		CreatedAt:      time.Now(),
	}
	b.messages[conversationId] = append(b.messages[conversationId], message)
	return &message, nil
}

func (b *fakeBackend) MarkViewed(ctx context.Context, message *model.Message) (*model.Message, error) {
	updated := *message
	updated.IsViewed = true
	return &updated, nil
}

func newTestBroker(t *testing.T) *feed.ChannelBroker {
	t.Helper()
	broker := feed.NewChannelBroker()
	go broker.Start()
	t.Cleanup(broker.Close)
	return broker
}

func publishMessage(t *testing.T, broker *feed.ChannelBroker, kind feed.Kind, message model.Message) {
	t.Helper()
	payload, err := json.Marshal(message)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), feed.ChangeEvent{
		Table:   feed.TableMessages,
		Kind:    kind,
		Payload: payload,
	}))
}

func msg(id, conversationId string, at time.Time) model.Message {
	return model.Message{
		Id:             id,
		ConversationId: conversationId,
		SenderId:       "u1",
		Content:        "hello " + id,
		CreatedAt:      at,
	}
}

func TestLoadReplacesLocalState(t *testing.T) {
	backend := newFakeBackend()
	backend.messages["c1"] = []model.Message{
		msg("m1", "c1", time.Now()),
		msg("m2", "c1", time.Now().Add(time.Second)),
	}
	store := New(backend, newTestBroker(t))

	require.NoError(t, store.Load(context.Background(), "c1"))
	assert.Len(t, store.Messages(), 2)

	// 空会话 id 清空状态，不发起请求
	require.NoError(t, store.Load(context.Background(), ""))
	assert.Empty(t, store.Messages())
}

func TestLoadMergesEventsArrivedDuringFetch(t *testing.T) {
	broker := newTestBroker(t)
	backend := newFakeBackend()
	base := time.Now()
	backend.messages["c1"] = []model.Message{
		msg("m1", "c1", base),
		msg("m2", "c1", base.Add(time.Second)),
	}
	store := New(backend, broker)
	t.Cleanup(store.Close)

	unsubscribe := store.Subscribe("c1")
	defer unsubscribe()

	// 数据库快照之后才提交的行在拉取返回前经订阅推送到达
	late := msg("m3", "c1", base.Add(2*time.Second))
	backend.listHook = func() {
		publishMessage(t, broker, feed.KindInsert, late)
		require.Eventually(t, func() bool {
			return len(store.Messages()) == 1
		}, time.Second, 10*time.Millisecond)
	}

	require.NoError(t, store.Load(context.Background(), "c1"))

	got := store.Messages()
	require.Len(t, got, 3)
	assert.Equal(t, "m1", got[0].Id)
	assert.Equal(t, "m2", got[1].Id)
	assert.Equal(t, "m3", got[2].Id)
}

func TestInsertEventDedupById(t *testing.T) {
	broker := newTestBroker(t)
	store := New(newFakeBackend(), broker)
	t.Cleanup(store.Close)

	unsubscribe := store.Subscribe("c1")
	defer unsubscribe()

	m := msg("m1", "c1", time.Now())
	publishMessage(t, broker, feed.KindInsert, m)
	publishMessage(t, broker, feed.KindInsert, m)

	require.Eventually(t, func() bool {
		return len(store.Messages()) == 1
	}, time.Second, 10*time.Millisecond)

	// 再等一拍确认重复事件没有追加
	time.Sleep(50 * time.Millisecond)
	assert.Len(t, store.Messages(), 1)
}

func TestInsertKeepsOrderOnOutOfOrderEvents(t *testing.T) {
	broker := newTestBroker(t)
	store := New(newFakeBackend(), broker)
	t.Cleanup(store.Close)

	unsubscribe := store.Subscribe("c1")
	defer unsubscribe()

	base := time.Now()
	publishMessage(t, broker, feed.KindInsert, msg("m3", "c1", base.Add(2*time.Second)))
	publishMessage(t, broker, feed.KindInsert, msg("m1", "c1", base))
	publishMessage(t, broker, feed.KindInsert, msg("m2", "c1", base.Add(time.Second)))

	require.Eventually(t, func() bool {
		return len(store.Messages()) == 3
	}, time.Second, 10*time.Millisecond)

	got := store.Messages()
	assert.Equal(t, "m1", got[0].Id)
	assert.Equal(t, "m2", got[1].Id)
	assert.Equal(t, "m3", got[2].Id)
}

func TestUpdateReplacesExistingEntry(t *testing.T) {
	broker := newTestBroker(t)
	store := New(newFakeBackend(), broker)
	t.Cleanup(store.Close)

	unsubscribe := store.Subscribe("c1")
	defer unsubscribe()

	m := msg("m1", "c1", time.Now())
	m.IsViewOnce = true
	publishMessage(t, broker, feed.KindInsert, m)
	require.Eventually(t, func() bool {
		return len(store.Messages()) == 1
	}, time.Second, 10*time.Millisecond)

	updated := m
	updated.IsViewed = true
	publishMessage(t, broker, feed.KindUpdate, updated)
	require.Eventually(t, func() bool {
		got := store.Messages()
		return len(got) == 1 && got[0].IsViewed
	}, time.Second, 10*time.Millisecond)
}

func TestUpdateForUnknownMessageIgnored(t *testing.T) {
	broker := newTestBroker(t)
	store := New(newFakeBackend(), broker)
	t.Cleanup(store.Close)

	unsubscribe := store.Subscribe("c1")
	defer unsubscribe()

	publishMessage(t, broker, feed.KindUpdate, msg("ghost", "c1", time.Now()))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.Messages())
}

func TestSubscriptionIsolationAcrossConversations(t *testing.T) {
	broker := newTestBroker(t)
	store := New(newFakeBackend(), broker)
	t.Cleanup(store.Close)

	unsubscribe := store.Subscribe("c1")
	defer unsubscribe()

	// 其他会话的事件不允许进入本地列表
	publishMessage(t, broker, feed.KindInsert, msg("other", "c2", time.Now()))
	publishMessage(t, broker, feed.KindInsert, msg("mine", "c1", time.Now()))

	require.Eventually(t, func() bool {
		return len(store.Messages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "mine", store.Messages()[0].Id)
}

func TestSwitchConversationDropsStaleEvents(t *testing.T) {
	broker := newTestBroker(t)
	store := New(newFakeBackend(), broker)
	t.Cleanup(store.Close)

	first := store.Subscribe("c1")
	first()
	second := store.Subscribe("c2")
	defer second()

	publishMessage(t, broker, feed.KindInsert, msg("old", "c1", time.Now()))
	publishMessage(t, broker, feed.KindInsert, msg("new", "c2", time.Now()))

	require.Eventually(t, func() bool {
		return len(store.Messages()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, "new", store.Messages()[0].Id)
}

func TestSendAppendsAuthoritativeRow(t *testing.T) {
	backend := newFakeBackend()
	store := New(backend, newTestBroker(t))
	t.Cleanup(store.Close)

	require.NoError(t, store.Load(context.Background(), "c1"))
	sent, err := store.Send(context.Background(), "hi", "u1", nil)
	require.NoError(t, err)

	got := store.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, sent.Id, got[0].Id)
}

func TestSendFailureLeavesStateUntouched(t *testing.T) {
	backend := newFakeBackend()
	backend.sendErr = errorx.ErrServerBusy
	store := New(backend, newTestBroker(t))
	t.Cleanup(store.Close)

	require.NoError(t, store.Load(context.Background(), "c1"))
	_, err := store.Send(context.Background(), "hi", "u1", nil)
	require.Error(t, err)
	assert.Empty(t, store.Messages())
}

func TestSendWithoutOpenConversation(t *testing.T) {
	store := New(newFakeBackend(), newTestBroker(t))
	t.Cleanup(store.Close)

	_, err := store.Send(context.Background(), "hi", "u1", nil)
	require.Error(t, err)
	assert.Equal(t, errorx.CodeInvalidParam, errorx.GetCode(err))
}

func TestMarkAsViewedOnlyAppliesToUnviewedViewOnce(t *testing.T) {
	backend := newFakeBackend()
	store := New(backend, newTestBroker(t))
	t.Cleanup(store.Close)

	plain := msg("m1", "c1", time.Now())
	require.NoError(t, store.MarkAsViewed(context.Background(), &plain))

	viewed := msg("m2", "c1", time.Now())
	viewed.IsViewOnce = true
	viewed.IsViewed = true
	require.NoError(t, store.MarkAsViewed(context.Background(), &viewed))
}

func TestOnApplyFiresOncePerAppliedChange(t *testing.T) {
	broker := newTestBroker(t)
	store := New(newFakeBackend(), broker)
	t.Cleanup(store.Close)

	applied := make(chan feed.Kind, 8)
	store.SetOnApply(func(kind feed.Kind, _ model.Message) {
		applied <- kind
	})

	unsubscribe := store.Subscribe("c1")
	defer unsubscribe()

	m := msg("m1", "c1", time.Now())
	publishMessage(t, broker, feed.KindInsert, m)
	publishMessage(t, broker, feed.KindInsert, m) // 重复事件不应再触发

	select {
	case kind := <-applied:
		assert.Equal(t, feed.KindInsert, kind)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for apply callback")
	}
	select {
	case <-applied:
		t.Fatal("duplicate event must not fire callback")
	case <-time.After(50 * time.Millisecond):
	}
}
