package repository

import (
	"chatsy/internal/model"

	"gorm.io/gorm"
)

type participantRepository struct {
	db *gorm.DB
}

// NewParticipantRepository 创建会话成员 Repository
func NewParticipantRepository(db *gorm.DB) ParticipantRepository {
	return &participantRepository{db: db}
}

// FindConversationIdsByUserId 查找用户参与的所有会话 id
func (r *participantRepository) FindConversationIdsByUserId(userId string) ([]string, error) {
	var ids []string
	if err := r.db.Model(&model.ConversationParticipant{}).
		Where("user_id = ?", userId).
		Pluck("conversation_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户会话 user_id=%s", userId)
	}
	return ids, nil
}

// FindUserIdsByConversationId 查找会话的全部成员 id
func (r *participantRepository) FindUserIdsByConversationId(conversationId string) ([]string, error) {
	var ids []string
	if err := r.db.Model(&model.ConversationParticipant{}).
		Where("conversation_id = ?", conversationId).
		Pluck("user_id", &ids).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询会话成员 conversation_id=%s", conversationId)
	}
	return ids, nil
}

// CreateBatch 批量写入成员关系
func (r *participantRepository) CreateBatch(participants []model.ConversationParticipant) error {
	if len(participants) == 0 {
		return nil
	}
	if err := r.db.Create(&participants).Error; err != nil {
		return wrapDBError(err, "写入会话成员")
	}
	return nil
}
