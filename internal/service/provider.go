// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"chatsy/internal/config"
	"chatsy/internal/dao/mysql"
	"chatsy/internal/dao/mysql/repository"
	"chatsy/internal/feed"
	"chatsy/internal/service/ai"
	"chatsy/internal/service/auth"
	"chatsy/internal/service/conversation"
	"chatsy/internal/service/message"
	"chatsy/internal/service/profile"
	"chatsy/internal/storage"
	"chatsy/internal/store/directory"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层和 WebSocket 网关通过此结构访问各个 Service
type Services struct {
	Auth         AuthService
	Profile      ProfileService
	Conversation ConversationService
	Message      MessageService
	AI           AIService

	// Directory 会话目录，WebSocket 网关的列表推送直接订阅它
	Directory *directory.Directory
}

// NewServices 创建并注入所有 Service 实例
// repos: Repository 聚合；store: 对象存储；broker: 变更推送；aiCfg: AI 配置
func NewServices(repos *mysql.Repositories, store storage.ObjectStorage, broker feed.Broker, aiCfg config.AIConfig) *Services {
	// 会话加参与者的写入跑在同一个数据库事务里
	txn := func(fn func(conversations repository.ConversationRepository, participants repository.ParticipantRepository) error) error {
		return repos.Transaction(func(tx *mysql.Repositories) error {
			return fn(tx.Conversation, tx.Participant)
		})
	}
	dir := directory.New(repos.Participant, repos.Conversation, repos.Profile, repos.Message, broker, txn)
	aiSvc := ai.NewAIService(aiCfg)

	return &Services{
		Auth:         auth.NewAuthService(repos),
		Profile:      profile.NewProfileService(repos, store),
		Conversation: conversation.NewConversationService(repos, dir, aiSvc),
		Message:      message.NewMessageService(repos, store, broker),
		AI:           aiSvc,
		Directory:    dir,
	}
}
