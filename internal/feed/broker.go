// Package feed 实现变更推送（change feed）
// broker.go
// 核心职责：定义事件代理接口
// 抽象事件发布和订阅管理，支持 Kafka 和 Channel 两种实现
package feed

import (
	"context"
	"sync"
)

// Broker 定义事件代理接口
// 支持多种实现：KafkaBroker (分布式), ChannelBroker (单机)
type Broker interface {
	// Publish 发布一条变更事件
	Publish(ctx context.Context, ev ChangeEvent) error
	// Subscribe 按表名和可选过滤条件订阅
	// 返回的 Subscription 必须由调用方显式 Unsubscribe，否则旧订阅会继续投递过期事件
	Subscribe(table string, filter *Filter) *Subscription
	// Start 启动事件分发循环
	Start()
	// Close 关闭代理资源
	Close()
}

// Subscription 一次订阅的句柄
// 事件通过 C() 返回的通道投递；Unsubscribe 幂等，并会关闭通道使 range 循环退出
type Subscription struct {
	ch     chan ChangeEvent
	table  string
	filter *Filter
	once   sync.Once
	cancel func(*Subscription)
}

// C 事件通道
func (s *Subscription) C() <-chan ChangeEvent {
	return s.ch
}

// Unsubscribe 取消订阅并关闭事件通道，可安全重复调用
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		if s.cancel != nil {
			s.cancel(s)
		}
		close(s.ch)
	})
}
