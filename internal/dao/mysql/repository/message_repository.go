package repository

import (
	"chatsy/internal/model"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息 Repository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// FindById 按 id 查找单条消息
func (r *messageRepository) FindById(id string) (*model.Message, error) {
	var message model.Message
	if err := r.db.Where("id = ?", id).First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 id=%s", id)
	}
	return &message, nil
}

// FindByConversationId 按会话查找消息，创建时间升序
// 时间相同用 id 做次序兜底，保证排序稳定
func (r *messageRepository) FindByConversationId(conversationId string) ([]model.Message, error) {
	var messages []model.Message
	if err := r.db.Where("conversation_id = ?", conversationId).
		Order("created_at ASC, id ASC").Find(&messages).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询消息 conversation_id=%s", conversationId)
	}
	return messages, nil
}

// FindLastByConversationId 查找会话最新一条消息
// 会话还没有任何消息时返回 CodeNotFound
func (r *messageRepository) FindLastByConversationId(conversationId string) (*model.Message, error) {
	var message model.Message
	if err := r.db.Where("conversation_id = ?", conversationId).
		Order("created_at DESC, id DESC").First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询最新消息 conversation_id=%s", conversationId)
	}
	return &message, nil
}

// Create 创建消息
func (r *messageRepository) Create(message *model.Message) error {
	if err := r.db.Create(message).Error; err != nil {
		return wrapDBError(err, "创建消息")
	}
	return nil
}

// MarkViewed 把消息的 is_viewed 置为 true，返回更新后的行
// 重复调用是安全的：字段已为 true 时更新等价于空操作
func (r *messageRepository) MarkViewed(id string) (*model.Message, error) {
	if err := r.db.Model(&model.Message{}).Where("id = ?", id).
		Update("is_viewed", true).Error; err != nil {
		return nil, wrapDBErrorf(err, "更新消息已读 id=%s", id)
	}
	var message model.Message
	if err := r.db.Where("id = ?", id).First(&message).Error; err != nil {
		return nil, wrapDBErrorf(err, "回查消息 id=%s", id)
	}
	return &message, nil
}
