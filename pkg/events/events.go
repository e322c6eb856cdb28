// Package events 提供了可选的聊天事件上报功能（Kafka 生产者）。
// 事件在助手回复落库后异步发送，发送失败只记日志，不影响请求本身。
package events

import (
	"context"
	"encoding/json"
	"time"

	"aira-go/internal/config"
	"aira-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// ChatExchange 描述一次完整的问答交互，供下游做统计分析。
// 只携带元数据，不包含消息原文。
type ChatExchange struct {
	UserID    uint      `json:"user_id"`
	Sentiment string    `json:"sentiment"`
	Degraded  bool      `json:"degraded"` // 上游失败、走了兜底文案
	Timestamp time.Time `json:"timestamp"`
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。brokers 为空时不启用事件上报。
func InitProducer(cfg config.KafkaConfig) {
	if cfg.Brokers == "" {
		log.Info("Kafka not configured, chat event reporting disabled")
		return
	}
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka producer initialized")
}

// Enabled 报告事件上报是否已启用。
func Enabled() bool {
	return producer != nil
}

// PublishChatExchange 异步上报一次问答交互，调用方无需等待。
func PublishChatExchange(ev ChatExchange) {
	if producer == nil {
		return
	}
	go func() {
		value, err := json.Marshal(ev)
		if err != nil {
			log.Errorf("failed to marshal chat event: %v", err)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := producer.WriteMessages(ctx, kafka.Message{Value: value}); err != nil {
			log.Errorf("failed to publish chat event: %v", err)
		}
	}()
}

// Close 关闭生产者连接，应在程序退出前调用。
func Close() {
	if producer != nil {
		_ = producer.Close()
	}
}
