package directory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsy/internal/dao/mysql/repository"
	"chatsy/internal/feed"
	"chatsy/internal/model"
	"chatsy/pkg/errorx"
)

// ==================== 内存 Repository 实现 ====================

type fakeParticipantRepo struct {
	rows     []model.ConversationParticipant
	batchErr error // CreateBatch 的注入错误
}

func (r *fakeParticipantRepo) FindConversationIdsByUserId(userId string) ([]string, error) {
	var ids []string
	for _, row := range r.rows {
		if row.UserId == userId {
			ids = append(ids, row.ConversationId)
		}
	}
	return ids, nil
}

func (r *fakeParticipantRepo) FindUserIdsByConversationId(conversationId string) ([]string, error) {
	var ids []string
	for _, row := range r.rows {
		if row.ConversationId == conversationId {
			ids = append(ids, row.UserId)
		}
	}
	return ids, nil
}

func (r *fakeParticipantRepo) CreateBatch(participants []model.ConversationParticipant) error {
	if r.batchErr != nil {
		return r.batchErr
	}
	r.rows = append(r.rows, participants...)
	return nil
}

type fakeConversationRepo struct {
	rows map[string]model.Conversation
}

func (r *fakeConversationRepo) FindById(id string) (*model.Conversation, error) {
	c, ok := r.rows[id]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "会话不存在")
	}
	return &c, nil
}

func (r *fakeConversationRepo) FindByIdsOrdered(ids []string) ([]model.Conversation, error) {
	var out []model.Conversation
	for _, id := range ids {
		if c, ok := r.rows[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConversationRepo) Create(conversation *model.Conversation) error {
	r.rows[conversation.Id] = *conversation
	return nil
}

type fakeProfileRepo struct {
	rows map[string]model.Profile
}

func (r *fakeProfileRepo) FindById(id string) (*model.Profile, error) {
	p, ok := r.rows[id]
	if !ok {
		return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
	}
	return &p, nil
}

func (r *fakeProfileRepo) FindByUsername(username string) (*model.Profile, error) {
	for _, p := range r.rows {
		if p.Username == username {
			return &p, nil
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "用户不存在")
}

func (r *fakeProfileRepo) FindByIds(ids []string) ([]model.Profile, error) {
	var out []model.Profile
	for _, id := range ids {
		if p, ok := r.rows[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProfileRepo) SearchByUsername(query, excludeId string, limit int) ([]model.Profile, error) {
	return nil, nil
}

func (r *fakeProfileRepo) Create(profile *model.Profile) error {
	r.rows[profile.Id] = *profile
	return nil
}

func (r *fakeProfileRepo) Update(profile *model.Profile) error {
	r.rows[profile.Id] = *profile
	return nil
}

type fakeMessageRepo struct {
	rows    map[string][]model.Message
	lastErr error // FindLastByConversationId 的注入错误
}

func (r *fakeMessageRepo) FindById(id string) (*model.Message, error) {
	for _, msgs := range r.rows {
		for _, m := range msgs {
			if m.Id == id {
				return &m, nil
			}
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "消息不存在")
}

func (r *fakeMessageRepo) FindByConversationId(conversationId string) ([]model.Message, error) {
	return r.rows[conversationId], nil
}

func (r *fakeMessageRepo) FindLastByConversationId(conversationId string) (*model.Message, error) {
	if r.lastErr != nil {
		return nil, r.lastErr
	}
	msgs := r.rows[conversationId]
	if len(msgs) == 0 {
		return nil, errorx.New(errorx.CodeNotFound, "会话还没有消息")
	}
	last := msgs[len(msgs)-1]
	return &last, nil
}

func (r *fakeMessageRepo) Create(message *model.Message) error {
	r.rows[message.ConversationId] = append(r.rows[message.ConversationId], *message)
	return nil
}

func (r *fakeMessageRepo) MarkViewed(id string) (*model.Message, error) {
	for cid, msgs := range r.rows {
		for i, m := range msgs {
			if m.Id == id {
				r.rows[cid][i].IsViewed = true
				updated := r.rows[cid][i]
				return &updated, nil
			}
		}
	}
	return nil, errorx.New(errorx.CodeNotFound, "消息不存在")
}

// ==================== 测试环境 ====================

type fixture struct {
	participants *fakeParticipantRepo
	convs        *fakeConversationRepo
	profiles     *fakeProfileRepo
	messages     *fakeMessageRepo
	broker       *feed.ChannelBroker
	dir          *Directory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		participants: &fakeParticipantRepo{},
		convs:        &fakeConversationRepo{rows: make(map[string]model.Conversation)},
		profiles:     &fakeProfileRepo{rows: make(map[string]model.Profile)},
		messages:     &fakeMessageRepo{rows: make(map[string][]model.Message)},
		broker:       feed.NewChannelBroker(),
	}
	go f.broker.Start()
	t.Cleanup(f.broker.Close)
	// 事务模拟：写入失败时恢复快照
	txn := func(fn func(conversations repository.ConversationRepository, participants repository.ParticipantRepository) error) error {
		convSnapshot := make(map[string]model.Conversation, len(f.convs.rows))
		for k, v := range f.convs.rows {
			convSnapshot[k] = v
		}
		partSnapshot := make([]model.ConversationParticipant, len(f.participants.rows))
		copy(partSnapshot, f.participants.rows)
		if err := fn(f.convs, f.participants); err != nil {
			f.convs.rows = convSnapshot
			f.participants.rows = partSnapshot
			return err
		}
		return nil
	}
	f.dir = New(f.participants, f.convs, f.profiles, f.messages, f.broker, txn)
	return f
}

func (f *fixture) addUser(id, username string) {
	f.profiles.rows[id] = model.Profile{Id: id, Username: username, CreatedAt: time.Now()}
}

func (f *fixture) addConversation(id string, userIds ...string) {
	f.convs.rows[id] = model.Conversation{Id: id, CreatedAt: time.Now()}
	for _, uid := range userIds {
		f.participants.rows = append(f.participants.rows, model.ConversationParticipant{
			ConversationId: id,
			UserId:         uid,
		})
	}
}

// ==================== 用例 ====================

func TestRefreshEmptyWhenNoConversations(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")

	entries, err := f.dir.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.NotNil(t, entries)
}

func TestRefreshAggregatesParticipantsAndLastMessage(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")
	f.addUser("u2", "bob")
	f.addConversation("c1", "u1", "u2")
	f.messages.rows["c1"] = []model.Message{
		{Id: "m1", ConversationId: "c1", SenderId: "u2", Content: "first", CreatedAt: time.Now()},
		{Id: "m2", ConversationId: "c1", SenderId: "u1", Content: "latest", CreatedAt: time.Now().Add(time.Second)},
	}

	entries, err := f.dir.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, "c1", entry.Conversation.Id)
	assert.Len(t, entry.Participants, 2)
	require.NotNil(t, entry.LastMessage)
	assert.Equal(t, "latest", entry.LastMessage.Content)
	assert.Equal(t, "u1", entry.LastMessage.SenderId)
	assert.NoError(t, entry.LastMessageErr)
}

func TestRefreshDistinguishesEmptyFromError(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")
	f.addConversation("c1", "u1")

	// 空会话：没有消息不算错误
	entries, err := f.dir.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].LastMessage)
	assert.NoError(t, entries[0].LastMessageErr)

	// 真实错误要挂在条目上
	f.messages.lastErr = errorx.New(errorx.CodeDBError, "数据库错误")
	entries, err = f.dir.Refresh(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].LastMessage)
	assert.Error(t, entries[0].LastMessageErr)
}

func TestGetOrCreateDirectReusesExisting(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")
	f.addUser("u2", "bob")

	first, err := f.dir.GetOrCreateDirect(context.Background(), "u1", "u2")
	require.NoError(t, err)
	require.NotEmpty(t, first)

	// 第二次必须拿到同一个会话，无论从哪一侧发起
	second, err := f.dir.GetOrCreateDirect(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reversed, err := f.dir.GetOrCreateDirect(context.Background(), "u2", "u1")
	require.NoError(t, err)
	assert.Equal(t, first, reversed)
}

func TestGetOrCreateDirectSkipsGroupConversations(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")
	f.addUser("u2", "bob")
	f.addUser("u3", "carol")
	// 已有一个三人会话，不能被当成 u1-u2 的单聊复用
	f.addConversation("g1", "u1", "u2", "u3")

	id, err := f.dir.GetOrCreateDirect(context.Background(), "u1", "u2")
	require.NoError(t, err)
	assert.NotEqual(t, "g1", id)
}

func TestGetOrCreateDirectPublishesParticipantEvents(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")
	f.addUser("u2", "bob")

	sub := f.broker.Subscribe(feed.TableParticipants, &feed.Filter{Column: "user_id", Equals: "u2"})
	defer sub.Unsubscribe()

	_, err := f.dir.GetOrCreateDirect(context.Background(), "u1", "u2")
	require.NoError(t, err)

	select {
	case ev := <-sub.C():
		assert.Equal(t, feed.KindInsert, ev.Kind)
		var p model.ConversationParticipant
		require.NoError(t, json.Unmarshal(ev.Payload, &p))
		assert.Equal(t, "u2", p.UserId)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for participant event")
	}
}

func TestGetOrCreateDirectRollsBackOnParticipantFailure(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")
	f.addUser("u2", "bob")
	f.participants.batchErr = errorx.New(errorx.CodeDBError, "数据库错误")

	_, err := f.dir.GetOrCreateDirect(context.Background(), "u1", "u2")
	require.Error(t, err)

	// 参与者写入失败时会话行一并回滚，不留半成品会话
	assert.Empty(t, f.convs.rows)
	assert.Empty(t, f.participants.rows)
}

func TestWatchTriggersOnMessageInsert(t *testing.T) {
	f := newFixture(t)
	f.addUser("u1", "alice")

	changed := make(chan struct{}, 4)
	stop := f.dir.Watch("u1", func() {
		changed <- struct{}{}
	})
	defer stop()

	payload, err := json.Marshal(model.Message{Id: "m1", ConversationId: "c1"})
	require.NoError(t, err)
	require.NoError(t, f.broker.Publish(context.Background(), feed.ChangeEvent{
		Table:   feed.TableMessages,
		Kind:    feed.KindInsert,
		Payload: payload,
	}))

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for watch trigger")
	}
}

func TestWatchIgnoresOtherUsersParticipantRows(t *testing.T) {
	f := newFixture(t)

	changed := make(chan struct{}, 4)
	stop := f.dir.Watch("u1", func() {
		changed <- struct{}{}
	})
	defer stop()

	payload, err := json.Marshal(model.ConversationParticipant{ConversationId: "c9", UserId: "someone-else"})
	require.NoError(t, err)
	require.NoError(t, f.broker.Publish(context.Background(), feed.ChangeEvent{
		Table:   feed.TableParticipants,
		Kind:    feed.KindInsert,
		Payload: payload,
	}))

	select {
	case <-changed:
		t.Fatal("participant row of another user must not trigger refresh")
	case <-time.After(100 * time.Millisecond):
	}
}
