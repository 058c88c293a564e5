package request

// MarkViewedRequest 阅后即焚标记请求
type MarkViewedRequest struct {
	MessageId string `json:"message_id" binding:"required"`
}
