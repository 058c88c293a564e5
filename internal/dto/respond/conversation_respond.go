package respond

// LastMessageRespond 会话列表中的最新消息摘要
type LastMessageRespond struct {
	Content   string `json:"content"`
	SenderId  string `json:"sender_id"`
	CreatedAt string `json:"created_at"`
}

// ConversationRespond 会话列表项
// LastMessage 为 null 且 LastMessageError 为空表示"还没有消息"
// LastMessageError 非空表示摘要拉取失败，区别于空会话
type ConversationRespond struct {
	Id               string              `json:"id"`
	IsGroup          bool                `json:"is_group"`
	CreatedAt        string              `json:"created_at"`
	Participants     []ProfileRespond    `json:"participants"`
	LastMessage      *LastMessageRespond `json:"last_message,omitempty"`
	LastMessageError string              `json:"last_message_error,omitempty"`
}
