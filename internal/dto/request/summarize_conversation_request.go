package request

// SummarizeConversationRequest 会话总结请求
type SummarizeConversationRequest struct {
	ConversationId string `json:"conversation_id" binding:"required"`
}
