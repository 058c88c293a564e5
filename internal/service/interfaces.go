// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层和 WebSocket 网关调用
// 接口设计遵循依赖倒置原则，便于测试和解耦
package service

import (
	"context"

	"github.com/gin-gonic/gin"

	"chatsy/internal/dto/request"
	"chatsy/internal/dto/respond"
	"chatsy/internal/model"
	"chatsy/internal/service/ai"
	"chatsy/internal/store/messagestore"
)

// AuthService 账号认证业务接口
type AuthService interface {
	// Register 注册并自动建档，成功即登录
	Register(req request.RegisterRequest) (*respond.LoginRespond, error)
	// Login 用户名密码登录
	Login(req request.LoginRequest) (*respond.LoginRespond, error)
	// RefreshToken 用 Refresh Token 换取新的 Access Token
	RefreshToken(refreshToken string) (*respond.RefreshTokenRespond, error)
}

// ProfileService 用户资料业务接口
type ProfileService interface {
	// GetProfile 获取单个用户资料
	GetProfile(userId string) (*respond.ProfileRespond, error)
	// UpdateProfile 更新用户名/头像
	UpdateProfile(userId string, req request.UpdateProfileRequest) (*respond.ProfileRespond, error)
	// SearchUsers 按用户名模糊搜索
	SearchUsers(query, currentUserId string) ([]respond.ProfileRespond, error)
	// UploadAvatar 上传头像并更新资料，返回公开 URL
	UploadAvatar(c *gin.Context, userId string) (string, error)
}

// ConversationService 会话目录业务接口
type ConversationService interface {
	// List 获取用户的会话列表（参与者 + 最新消息摘要）
	List(ctx context.Context, userId string) ([]respond.ConversationRespond, error)
	// OpenDirect 查找或创建单聊会话，返回会话 id
	OpenDirect(ctx context.Context, currentUserId, targetUserId string) (string, error)
	// Summarize 用 AI 总结整段单聊记录，返回总结文本
	Summarize(ctx context.Context, conversationId, userId string) (string, error)
	// EnsureMember 校验用户是否为会话成员
	EnsureMember(ctx context.Context, conversationId, userId string) error
}

// MessageService 消息业务接口
// 内嵌 messagestore.Backend：消息存取的核心三操作由同一实现承载
type MessageService interface {
	messagestore.Backend

	// GetMessage 按 id 获取单条消息
	GetMessage(ctx context.Context, messageId string) (*model.Message, error)
}

// AIService AI 助手业务接口
type AIService interface {
	// SendMessage 发送消息并返回助手回复
	SendMessage(ctx context.Context, userId, content string) (*ai.Turn, error)
	// Summarize 总结当前对话
	Summarize(ctx context.Context, userId string) (*ai.Turn, error)
	// History 获取完整对话记录
	History(userId string) ([]ai.Turn, error)
	// Clear 清空对话记录
	Clear(userId string) error
}
