package request

// GetMessageListRequest 获取会话消息列表请求
type GetMessageListRequest struct {
	ConversationId string `form:"conversation_id" binding:"required"`
}
