package model

// ConversationParticipant 会话成员关系，对应 conversation_participants 表
// 同一会话同一用户只允许一行
type ConversationParticipant struct {
	ConversationId string `gorm:"column:conversation_id;primaryKey;type:char(36)" json:"conversation_id"`
	UserId         string `gorm:"column:user_id;primaryKey;index;type:char(36)" json:"user_id"`
}

// TableName 指定表名
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}
