// Package model 定义数据库实体模型
// 本文件定义会话模型；客户端只创建一对一会话，is_group 为扩展保留
package model

import "time"

// Conversation 会话模型，对应数据库 conversations 表
type Conversation struct {
	Id        string    `gorm:"column:id;primaryKey;type:char(36)" json:"id"`
	IsGroup   bool      `gorm:"column:is_group;not null;default:false" json:"is_group"`
	CreatedAt time.Time `gorm:"column:created_at;index" json:"created_at"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversations"
}
