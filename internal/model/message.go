// Package model 定义数据库实体模型
// 本文件定义消息模型
package model

import "time"

// 附件类型
const (
	AttachmentImage = "image"
	AttachmentFile  = "file"
)

// Message 消息模型
// 对应数据库 messages 表
// 消息一旦写入不会删除，唯一可变字段是 is_viewed（阅后即焚标记）
type Message struct {
	// Id 消息唯一标识，插入时由服务端分配的 UUID 字符串
	Id string `gorm:"column:id;primaryKey;type:char(36)" json:"id"`

	// ConversationId 所属会话
	ConversationId string `gorm:"column:conversation_id;index;type:char(36);not null" json:"conversation_id"`

	// SenderId 发送者
	SenderId string `gorm:"column:sender_id;type:char(36);not null" json:"sender_id"`

	// Content 文本内容，纯附件消息可为空
	Content string `gorm:"column:content;type:TEXT" json:"content"`

	// AttachmentUrl 附件公开 URL
	// 多媒体文件不直接进数据库，先写入对象存储，这里只存访问链接
	AttachmentUrl string `gorm:"column:attachment_url;type:varchar(255)" json:"attachment_url,omitempty"`

	// AttachmentType 附件类型："image" 或 "file"
	AttachmentType string `gorm:"column:attachment_type;type:char(10)" json:"attachment_type,omitempty"`

	// IsViewOnce 阅后即焚标记
	IsViewOnce bool `gorm:"column:is_view_once;not null;default:false" json:"is_view_once"`

	// IsViewed 已查看标记，一旦为 true 不会回退
	IsViewed bool `gorm:"column:is_viewed;not null;default:false" json:"is_viewed"`

	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
