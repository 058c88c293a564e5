// Package feed 实现变更推送（change feed）
// channel_broker.go
// 核心职责：单机模式下的事件分发实现
// 1. 维护订阅表（按逻辑表名分组）
// 2. 通过进程内通道做事件扇出
// 3. 不依赖外部消息队列，适合小规模或开发环境
package feed

import (
	"context"
	"sync"

	"chatsy/pkg/constants"

	"go.uber.org/zap"
)

// ChannelBroker 进程内事件代理
type ChannelBroker struct {
	// transmit 事件转发通道，Publish 写入，Start 循环消费
	transmit chan ChangeEvent
	// done 关闭信号
	done chan struct{}

	mu sync.Mutex
	// subs 按表名分组的订阅集合
	subs map[string]map[*Subscription]struct{}

	closeOnce sync.Once
}

// NewChannelBroker 创建 ChannelBroker 实例
func NewChannelBroker() *ChannelBroker {
	return &ChannelBroker{
		transmit: make(chan ChangeEvent, constants.CHANNEL_SIZE),
		done:     make(chan struct{}),
		subs:     make(map[string]map[*Subscription]struct{}),
	}
}

// Publish 把事件放入转发通道
// 通道满时丢弃并告警，发布方不被阻塞
func (b *ChannelBroker) Publish(ctx context.Context, ev ChangeEvent) error {
	select {
	case b.transmit <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		zap.L().Warn("feed transmit channel full, event dropped",
			zap.String("table", ev.Table),
			zap.String("kind", string(ev.Kind)),
		)
		return nil
	}
}

// Subscribe 注册订阅
func (b *ChannelBroker) Subscribe(table string, filter *Filter) *Subscription {
	sub := &Subscription{
		ch:     make(chan ChangeEvent, constants.CHANNEL_SIZE),
		table:  table,
		filter: filter,
		cancel: b.remove,
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs[table] == nil {
		b.subs[table] = make(map[*Subscription]struct{})
	}
	b.subs[table][sub] = struct{}{}
	return sub
}

// remove 从订阅表中摘除
// 与 dispatch 共用同一把锁，保证摘除后不会再有事件写入该订阅的通道
func (b *ChannelBroker) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.table]; ok {
		delete(set, sub)
	}
}

// Start 启动事件分发主循环
func (b *ChannelBroker) Start() {
	for {
		select {
		case <-b.done:
			return
		case ev, ok := <-b.transmit:
			if !ok {
				return
			}
			b.dispatch(ev)
		}
	}
}

// dispatch 把事件扇出给命中的订阅者
// 订阅者的通道满时丢弃该订阅者的这条事件，慢消费者不能拖住分发循环
func (b *ChannelBroker) dispatch(ev ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for sub := range b.subs[ev.Table] {
		if !sub.filter.Matches(ev.Payload) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			zap.L().Warn("feed subscriber channel full, event dropped",
				zap.String("table", ev.Table),
			)
		}
	}
}

// Close 关闭代理
func (b *ChannelBroker) Close() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}
