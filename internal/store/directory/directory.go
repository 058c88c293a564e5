// Package directory 维护当前用户的会话列表
// 核心职责：聚合会话、成员资料和最新消息摘要，并在相关变更事件上整体重拉
// 刷新策略是"全量重算"而不是增量合并，用效率换简单
package directory

import (
	"context"
	"encoding/json"
	"time"

	"chatsy/internal/dao/mysql/repository"
	"chatsy/internal/feed"
	"chatsy/internal/model"
	"chatsy/pkg/errorx"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MessageSummary 会话列表项里的最新消息摘要
type MessageSummary struct {
	Content   string
	SenderId  string
	CreatedAt time.Time
}

// Entry 一个聚合后的会话列表项
// LastMessage 为 nil 且 LastMessageErr 为 nil 表示"还没有消息"；
// LastMessageErr 非 nil 表示摘要拉取失败，两种状态刻意区分开
type Entry struct {
	Conversation   model.Conversation
	Participants   []model.Profile
	LastMessage    *MessageSummary
	LastMessageErr error
}

// Txn 在一个数据库事务里执行会话和参与者的写入
// 传入的仓库绑定到事务，函数返回错误时整体回滚
type Txn func(fn func(conversations repository.ConversationRepository, participants repository.ParticipantRepository) error) error

// Directory 会话目录
type Directory struct {
	participants  repository.ParticipantRepository
	conversations repository.ConversationRepository
	profiles      repository.ProfileRepository
	messages      repository.MessageRepository
	broker        feed.Broker
	txn           Txn
}

// New 创建会话目录
func New(
	participants repository.ParticipantRepository,
	conversations repository.ConversationRepository,
	profiles repository.ProfileRepository,
	messages repository.MessageRepository,
	broker feed.Broker,
	txn Txn,
) *Directory {
	return &Directory{
		participants:  participants,
		conversations: conversations,
		profiles:      profiles,
		messages:      messages,
		broker:        broker,
		txn:           txn,
	}
}

// Refresh 重算用户的会话列表
// 1. 取用户参与的会话 id；没有则返回空列表
// 2. 按创建时间倒序取会话行
// 3. 并发拉取每个会话的成员资料和最新消息
// 单个会话的子拉取失败只影响该条目，不中断整体刷新
func (d *Directory) Refresh(ctx context.Context, userId string) ([]Entry, error) {
	ids, err := d.participants.FindConversationIdsByUserId(userId)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}

	conversations, err := d.conversations.FindByIdsOrdered(ids)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, len(conversations))
	g, _ := errgroup.WithContext(ctx)
	for i, conversation := range conversations {
		i, conversation := i, conversation
		g.Go(func() error {
			entries[i] = d.buildEntry(conversation)
			// 子拉取的失败已经记录在条目上，这里永远返回 nil
			return nil
		})
	}
	_ = g.Wait()

	return entries, nil
}

// buildEntry 聚合单个会话的成员资料和最新消息
func (d *Directory) buildEntry(conversation model.Conversation) Entry {
	entry := Entry{Conversation: conversation}

	userIds, err := d.participants.FindUserIdsByConversationId(conversation.Id)
	if err != nil {
		zap.L().Error("查询会话成员失败",
			zap.String("conversation_id", conversation.Id),
			zap.Error(err),
		)
	} else if profiles, err := d.profiles.FindByIds(userIds); err != nil {
		zap.L().Error("查询成员资料失败",
			zap.String("conversation_id", conversation.Id),
			zap.Error(err),
		)
	} else {
		entry.Participants = profiles
	}

	last, err := d.messages.FindLastByConversationId(conversation.Id)
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeNotFound {
			// 空会话：还没有任何消息，不是错误
			return entry
		}
		zap.L().Error("查询最新消息失败",
			zap.String("conversation_id", conversation.Id),
			zap.Error(err),
		)
		entry.LastMessageErr = err
		return entry
	}
	entry.LastMessage = &MessageSummary{
		Content:   last.Content,
		SenderId:  last.SenderId,
		CreatedAt: last.CreatedAt,
	}
	return entry
}

// Watch 订阅会触发列表刷新的变更事件
// 消息表的任何插入（粗粒度，不按会话过滤，靠重算丢弃无关事件）和
// 当前用户的成员行插入（覆盖"被拉进新会话"）都会触发 onChange
// 返回的函数用于显式退订
func (d *Directory) Watch(userId string, onChange func()) (stop func()) {
	messageSub := d.broker.Subscribe(feed.TableMessages, nil)
	participantSub := d.broker.Subscribe(feed.TableParticipants, &feed.Filter{
		Column: "user_id",
		Equals: userId,
	})

	trigger := func(sub *feed.Subscription) {
		for ev := range sub.C() {
			if ev.Kind != feed.KindInsert {
				continue
			}
			onChange()
		}
	}
	go trigger(messageSub)
	go trigger(participantSub)

	return func() {
		messageSub.Unsubscribe()
		participantSub.Unsubscribe()
	}
}

// GetOrCreateDirect 查找或创建两个用户之间的一对一会话
// 先扫描当前用户的所有会话，找恰好两人且包含目标用户的那一个；
// 找不到才新建会话并按（当前用户、目标用户）的顺序写入两行成员关系
//
// 已知竞态窗口：两次几乎同时的首次联系可能都扫描不到已有会话，
// 各自建出一条重复会话。创建本身是事务性的（会话+参与者要么都写入
// 要么都不写），但扫描和创建之间没有唯一约束兜底，接受该风险，
// 因为调用方（UI）的触发模式让并发重复创建几乎不可能发生
func (d *Directory) GetOrCreateDirect(ctx context.Context, currentUserId, targetUserId string) (string, error) {
	ids, err := d.participants.FindConversationIdsByUserId(currentUserId)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		userIds, err := d.participants.FindUserIdsByConversationId(id)
		if err != nil {
			// 单个会话查不出来不阻塞整个扫描
			zap.L().Warn("查询会话成员失败，跳过", zap.String("conversation_id", id), zap.Error(err))
			continue
		}
		if len(userIds) != 2 {
			continue
		}
		for _, uid := range userIds {
			if uid == targetUserId {
				return id, nil
			}
		}
	}

	// 没有现成会话，创建新会话
	// 会话行和两条参与者行在同一个事务里写入，失败整体回滚
	conversation := &model.Conversation{
		Id:        uuid.NewString(),
		IsGroup:   false,
		CreatedAt: time.Now(),
	}
	participants := []model.ConversationParticipant{
		{ConversationId: conversation.Id, UserId: currentUserId},
		{ConversationId: conversation.Id, UserId: targetUserId},
	}
	err = d.txn(func(conversations repository.ConversationRepository, participantRepo repository.ParticipantRepository) error {
		if err := conversations.Create(conversation); err != nil {
			return err
		}
		return participantRepo.CreateBatch(participants)
	})
	if err != nil {
		return "", err
	}

	// 广播新成员行，让目标用户的目录刷新
	for _, p := range participants {
		d.publishParticipant(ctx, p)
	}

	return conversation.Id, nil
}

// publishParticipant 发布成员行插入事件，失败只记日志
func (d *Directory) publishParticipant(ctx context.Context, p model.ConversationParticipant) {
	payload, err := json.Marshal(p)
	if err != nil {
		zap.L().Error("序列化成员行失败", zap.Error(err))
		return
	}
	if err := d.broker.Publish(ctx, feed.ChangeEvent{
		Table:   feed.TableParticipants,
		Kind:    feed.KindInsert,
		Payload: payload,
	}); err != nil {
		zap.L().Error("发布成员行事件失败", zap.Error(err))
	}
}
