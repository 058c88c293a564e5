package request

// SendMessageRequest 发送消息请求
// 附件走 multipart 的 file 字段随消息一起提交，类型由服务端探测
type SendMessageRequest struct {
	ConversationId string `form:"conversation_id" json:"conversation_id" binding:"required"`
	Content        string `form:"content" json:"content"`
	IsViewOnce     bool   `form:"is_view_once" json:"is_view_once"`
}
