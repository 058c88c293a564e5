// Package messagestore 维护单个会话的权威消息列表
// 核心职责：把一次性全量拉取和持续的变更推送合并成一份本地状态
// 1. 插入事件按消息 id 去重（本地乐观追加和推送回流会撞同一条消息）
// 2. 插入按 (created_at, id) 有序合并，推送乱序到达也能保持升序
// 3. 切换会话时必须先关闭旧订阅，过期事件不允许污染新会话的状态
package messagestore

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"

	"chatsy/internal/feed"
	"chatsy/internal/model"
	"chatsy/pkg/errorx"

	"go.uber.org/zap"
)

// Attachment 待上传的附件
type Attachment struct {
	FileName string
	Data     io.ReadSeeker
	ViewOnce bool
}

// Backend 消息存储依赖的后端数据服务切面
// 由 service/message 实现：落库、发布变更事件、读写对象存储
type Backend interface {
	// ListMessages 按会话全量拉取，创建时间升序
	ListMessages(ctx context.Context, conversationId string) ([]model.Message, error)
	// SendMessage 附件（如有）先上传，再插入消息行，返回权威行
	SendMessage(ctx context.Context, conversationId, senderId, content string, att *Attachment) (*model.Message, error)
	// MarkViewed 翻转 is_viewed 并清理阅后即焚附件，返回更新后的行
	MarkViewed(ctx context.Context, message *model.Message) (*model.Message, error)
}

// Store 单个会话的消息状态
// 所有状态变更经由同一把互斥锁串行化；拉取、推送、发送三个来源之间的
// 逻辑顺序不保证，靠 id 去重保证收敛
type Store struct {
	backend Backend
	broker  feed.Broker

	mu             sync.Mutex
	conversationId string
	messages       []model.Message
	loadErr        error
	sub            *feed.Subscription
	onApply        func(kind feed.Kind, message model.Message)
}

// New 创建消息存储
func New(backend Backend, broker feed.Broker) *Store {
	return &Store{
		backend: backend,
		broker:  broker,
	}
}

// SetOnApply 注册变更回调
// 每条插入/更新成功并入本地列表后调用一次，用于驱动界面刷新或网关推送
// 回调在锁外执行，重复/过期事件不会触发
func (s *Store) SetOnApply(fn func(kind feed.Kind, message model.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onApply = fn
}

// Load 全量拉取会话消息并替换本地列表
// conversationId 为空表示"无会话"：清空状态，不发起请求
// 拉取失败时记录错误状态，本地列表保持为空
func (s *Store) Load(ctx context.Context, conversationId string) error {
	s.mu.Lock()
	s.conversationId = conversationId
	s.messages = nil
	s.loadErr = nil
	s.mu.Unlock()

	if conversationId == "" {
		return nil
	}

	messages, err := s.backend.ListMessages(ctx, conversationId)
	s.mu.Lock()
	defer s.mu.Unlock()
	// 拉取期间发生过会话切换，结果作废
	if s.conversationId != conversationId {
		return nil
	}
	if err != nil {
		s.loadErr = err
		return err
	}
	// 拉取期间推送到达的消息已在本地列表里（数据库快照之后提交的行），
	// 按 id 合并拉取结果，不做整体覆盖，避免把这些行丢掉
	for _, m := range messages {
		s.insertLocked(m)
	}
	return nil
}

// Subscribe 订阅会话的变更推送
// 先拆掉旧订阅再建新订阅；返回的函数用于显式退订
func (s *Store) Subscribe(conversationId string) (unsubscribe func()) {
	s.mu.Lock()
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
	s.conversationId = conversationId
	if conversationId == "" {
		s.mu.Unlock()
		return func() {}
	}
	sub := s.broker.Subscribe(feed.TableMessages, &feed.Filter{
		Column: "conversation_id",
		Equals: conversationId,
	})
	s.sub = sub
	s.mu.Unlock()

	go s.consume(sub)
	return sub.Unsubscribe
}

// consume 变更事件消费循环，退订后通道关闭循环随之结束
func (s *Store) consume(sub *feed.Subscription) {
	for ev := range sub.C() {
		var message model.Message
		if err := json.Unmarshal(ev.Payload, &message); err != nil {
			zap.L().Error("feed payload unmarshal error", zap.Error(err))
			continue
		}
		s.apply(ev.Kind, message)
	}
}

// Send 发送消息
// 成功后立刻把权威行并入本地列表；稍后同一行经推送回流时由去重规则吸收
// 失败不改动本地状态，由调用方保留输入重试
func (s *Store) Send(ctx context.Context, content, senderId string, att *Attachment) (*model.Message, error) {
	s.mu.Lock()
	conversationId := s.conversationId
	s.mu.Unlock()
	if conversationId == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "当前没有打开的会话")
	}

	message, err := s.backend.SendMessage(ctx, conversationId, senderId, content, att)
	if err != nil {
		return nil, err
	}
	s.apply(feed.KindInsert, *message)
	return message, nil
}

// MarkAsViewed 把阅后即焚消息标记为已查看
// 仅适用于带阅后即焚标记且未查看的消息
func (s *Store) MarkAsViewed(ctx context.Context, message *model.Message) error {
	if !message.IsViewOnce || message.IsViewed {
		return nil
	}
	updated, err := s.backend.MarkViewed(ctx, message)
	if err != nil {
		return err
	}
	s.apply(feed.KindUpdate, *updated)
	return nil
}

// Messages 当前消息列表的快照
func (s *Store) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Err 最近一次全量拉取的错误状态
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadErr
}

// Close 关闭订阅
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sub != nil {
		s.sub.Unsubscribe()
		s.sub = nil
	}
}

// apply 把一条变更并入本地列表，成功并入时触发回调
func (s *Store) apply(kind feed.Kind, message model.Message) {
	var applied bool
	switch kind {
	case feed.KindInsert:
		applied = s.applyInsert(message)
	case feed.KindUpdate:
		applied = s.applyUpdate(message)
	}
	if !applied {
		return
	}
	s.mu.Lock()
	fn := s.onApply
	s.mu.Unlock()
	if fn != nil {
		fn(kind, message)
	}
}

// applyInsert 幂等合并一条插入
// id 已存在时忽略；否则按 (created_at, id) 找插入点保持升序
func (s *Store) applyInsert(message model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(message)
}

// insertLocked applyInsert 的持锁版本，Load 合并拉取结果时直接调用
func (s *Store) insertLocked(message model.Message) bool {
	// 过期事件：会话已经切走
	if message.ConversationId != s.conversationId {
		return false
	}
	for _, m := range s.messages {
		if m.Id == message.Id {
			return false
		}
	}
	idx := sort.Search(len(s.messages), func(i int) bool {
		m := s.messages[i]
		if !m.CreatedAt.Equal(message.CreatedAt) {
			return m.CreatedAt.After(message.CreatedAt)
		}
		return m.Id > message.Id
	})
	s.messages = append(s.messages, model.Message{})
	copy(s.messages[idx+1:], s.messages[idx:])
	s.messages[idx] = message
	return true
}

// applyUpdate 按 id 替换已有条目，id 不在列表中的更新直接忽略
func (s *Store) applyUpdate(message model.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if message.ConversationId != s.conversationId {
		return false
	}
	for i, m := range s.messages {
		if m.Id == message.Id {
			s.messages[i] = message
			return true
		}
	}
	return false
}
