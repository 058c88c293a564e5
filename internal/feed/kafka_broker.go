// Package feed 实现变更推送（change feed）
// kafka_broker.go
// 核心职责：分布式模式下的事件代理实现
// 1. 封装 Kafka 底层连接 (Writer/Reader)
// 2. 事件先写 Kafka，消费循环读回后交给内嵌的 ChannelBroker 做本地扇出
// 3. 每个进程消费完整事件流，订阅过滤在本地完成
package feed

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"chatsy/internal/config"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBroker 基于 Kafka 的事件代理
type KafkaBroker struct {
	producer *kafka.Writer
	consumer *kafka.Reader
	local    *ChannelBroker // 本地扇出
	key      []byte
}

// NewKafkaBroker 创建并初始化 Kafka 事件代理
func NewKafkaBroker() *KafkaBroker {
	feedConfig := config.GetConfig().FeedConfig

	producer := &kafka.Writer{
		Addr:                   kafka.TCP(feedConfig.HostPort),
		Topic:                  feedConfig.FeedTopic,
		Balancer:               &kafka.Hash{},
		WriteTimeout:           feedConfig.Timeout * time.Second,
		RequiredAcks:           kafka.RequireNone,
		AllowAutoTopicCreation: false,
	}
	consumer := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        []string{feedConfig.HostPort},
		Topic:          feedConfig.FeedTopic,
		CommitInterval: feedConfig.Timeout * time.Second,
		GroupID:        "chatsy_feed",
		StartOffset:    kafka.LastOffset,
	})

	return &KafkaBroker{
		producer: producer,
		consumer: consumer,
		local:    NewChannelBroker(),
		key:      []byte(strconv.Itoa(feedConfig.Partition)),
	}
}

// Publish 把事件序列化后写入 Kafka
func (b *KafkaBroker) Publish(ctx context.Context, ev ChangeEvent) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.producer.WriteMessages(ctx, kafka.Message{
		Key:   b.key,
		Value: value,
	})
}

// Subscribe 订阅在本地扇出层完成
func (b *KafkaBroker) Subscribe(table string, filter *Filter) *Subscription {
	return b.local.Subscribe(table, filter)
}

// Start 启动消费循环：从 Kafka 读回事件 -> 本地扇出
func (b *KafkaBroker) Start() {
	go b.local.Start()
	for {
		msg, err := b.consumer.ReadMessage(context.Background())
		if err != nil {
			// Reader 关闭后 ReadMessage 返回错误，消费循环退出
			zap.L().Error("kafka feed read error", zap.Error(err))
			return
		}
		var ev ChangeEvent
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			zap.L().Error("kafka feed unmarshal error", zap.Error(err))
			continue
		}
		b.local.dispatch(ev)
	}
}

// Close 关闭 Kafka 资源和本地扇出层
func (b *KafkaBroker) Close() {
	if err := b.producer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
	if err := b.consumer.Close(); err != nil {
		zap.L().Error(err.Error())
	}
	b.local.Close()
}
