// Package mysql 提供 Repository 层聚合与构造
package mysql

import (
	"gorm.io/gorm"

	"chatsy/internal/dao/mysql/repository"
)

// Repositories 聚合所有 Repository 实例
// 作为依赖注入的入口，Service 层和 Store 层通过此结构访问数据层
type Repositories struct {
	db           *gorm.DB
	Profile      repository.ProfileRepository
	Conversation repository.ConversationRepository
	Participant  repository.ParticipantRepository
	Message      repository.MessageRepository
}

// NewRepositories 创建所有 Repository 实例
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		Profile:      repository.NewProfileRepository(db),
		Conversation: repository.NewConversationRepository(db),
		Participant:  repository.NewParticipantRepository(db),
		Message:      repository.NewMessageRepository(db),
	}
}

// Transaction 在数据库事务中执行函数
// 事务内的所有操作要么全部成功，要么全部回滚
func (r *Repositories) Transaction(fn func(txRepos *Repositories) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
