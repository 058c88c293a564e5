package repository

import (
	"chatsy/internal/model"

	"gorm.io/gorm"
)

type conversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository 创建会话 Repository
func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

// FindById 根据 id 查找会话
func (r *conversationRepository) FindById(id string) (*model.Conversation, error) {
	var conversation model.Conversation
	if err := r.db.Where("id = ?", id).First(&conversation).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话 id=%s", id)
	}
	return &conversation, nil
}

// FindByIdsOrdered 批量查找会话，按创建时间倒序
func (r *conversationRepository) FindByIdsOrdered(ids []string) ([]model.Conversation, error) {
	if len(ids) == 0 {
		return []model.Conversation{}, nil
	}
	var conversations []model.Conversation
	if err := r.db.Where("id IN ?", ids).Order("created_at DESC").
		Find(&conversations).Error; err != nil {
		return nil, wrapDBError(err, "批量查询会话")
	}
	return conversations, nil
}

// Create 创建会话
func (r *conversationRepository) Create(conversation *model.Conversation) error {
	if err := r.db.Create(conversation).Error; err != nil {
		return wrapDBError(err, "创建会话")
	}
	return nil
}
