// Package repository 定义数据访问层接口和聚合结构
// 采用 Repository 模式将数据访问逻辑与业务逻辑分离
// 所有 Repository 接口在此文件定义，具体实现在各自的文件中
package repository

import (
	"errors"

	"chatsy/internal/model"
	"chatsy/pkg/errorx"

	"gorm.io/gorm"
)

// ==================== 错误包装辅助函数 ====================

// wrapDBError 包装数据库错误
// ErrRecordNotFound -> CodeNotFound，其他错误 -> CodeDBError
func wrapDBError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrap(err, errorx.CodeNotFound, msg)
	}
	return errorx.Wrap(err, errorx.CodeDBError, msg)
}

// wrapDBErrorf 包装数据库错误（支持格式化消息）
func wrapDBErrorf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errorx.Wrapf(err, errorx.CodeNotFound, format, args...)
	}
	return errorx.Wrapf(err, errorx.CodeDBError, format, args...)
}

// ==================== Repository 接口定义 ====================

// ProfileRepository 用户资料数据访问接口
type ProfileRepository interface {
	// FindById 根据 id 查找用户资料
	FindById(id string) (*model.Profile, error)
	// FindByUsername 根据用户名查找（登录用）
	FindByUsername(username string) (*model.Profile, error)
	// FindByIds 批量根据 id 查找
	FindByIds(ids []string) ([]model.Profile, error)
	// SearchByUsername 按用户名模糊搜索，排除指定用户，限制条数
	SearchByUsername(query, excludeId string, limit int) ([]model.Profile, error)
	// Create 创建用户资料
	Create(profile *model.Profile) error
	// Update 更新用户资料（用户名、头像）
	Update(profile *model.Profile) error
}

// ConversationRepository 会话数据访问接口
type ConversationRepository interface {
	// FindById 根据 id 查找会话
	FindById(id string) (*model.Conversation, error)
	// FindByIdsOrdered 批量查找会话，按创建时间倒序
	FindByIdsOrdered(ids []string) ([]model.Conversation, error)
	// Create 创建会话
	Create(conversation *model.Conversation) error
}

// ParticipantRepository 会话成员数据访问接口
type ParticipantRepository interface {
	// FindConversationIdsByUserId 查找用户参与的所有会话 id
	FindConversationIdsByUserId(userId string) ([]string, error)
	// FindUserIdsByConversationId 查找会话的全部成员 id
	FindUserIdsByConversationId(conversationId string) ([]string, error)
	// CreateBatch 批量写入成员关系
	CreateBatch(participants []model.ConversationParticipant) error
}

// MessageRepository 消息数据访问接口
type MessageRepository interface {
	// FindById 按 id 查找单条消息
	FindById(id string) (*model.Message, error)
	// FindByConversationId 按会话查找消息，创建时间升序
	FindByConversationId(conversationId string) ([]model.Message, error)
	// FindLastByConversationId 查找会话最新一条消息
	FindLastByConversationId(conversationId string) (*model.Message, error)
	// Create 创建消息（插入后 message 即为权威行）
	Create(message *model.Message) error
	// MarkViewed 把消息的 is_viewed 置为 true，返回更新后的行
	MarkViewed(id string) (*model.Message, error)
}
