package request

// AIChatRequest AI 对话请求
type AIChatRequest struct {
	Content string `json:"content" binding:"required"`
}
