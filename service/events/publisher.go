/*
 * @module service/events/publisher
 * @description 传输生命周期事件发布器，批次开始/成功/失败和接口启停事件写入Kafka供下游审计消费
 * @architecture 事件驱动 - 出站事件发布
 * @documentReference dev_docs/transport_worker.md
 * @stateFlow 关键节点构造事件 -> 异步写入Kafka -> 失败仅记日志不阻塞主流程
 * @rules 事件发布失败不影响传输主流程；未配置Kafka时发布为空操作
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/basicdata
 */

package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// 事件类型
const (
	EventBatchStarted   = "transport.batch.started"
	EventBatchSucceeded = "transport.batch.succeeded"
	EventBatchFailed    = "transport.batch.failed"
	EventRetryScheduled = "transport.retry.scheduled"
	EventInterfaceStart = "interface.started"
	EventInterfaceStop  = "interface.stopped"
)

// TransportEvent 传输生命周期事件
type TransportEvent struct {
	Type           string    `json:"type"`
	InterfaceName  string    `json:"interfaceName"`
	TransportBatch int64     `json:"transportBatch,omitempty"`
	RowCount       int       `json:"rowCount,omitempty"`
	Message        string    `json:"message,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Publisher 事件发布器
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher 按环境变量创建发布器，KAFKA_BROKERS未配置时返回空操作发布器
func NewPublisher() *Publisher {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		slog.Info("未配置KAFKA_BROKERS，事件发布为空操作")
		return &Publisher{}
	}

	topic := os.Getenv("KAFKA_TOPIC")
	if topic == "" {
		topic = "esb-transport-events"
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 100 * time.Millisecond,
		Async:        true,
	}
	slog.Info("事件发布器初始化成功", "brokers", brokers, "topic", topic)
	return &Publisher{writer: writer}
}

// Publish 发布一个事件，按接口名作为分区键
func (p *Publisher) Publish(ctx context.Context, event TransportEvent) {
	if p.writer == nil {
		return
	}
	event.OccurredAt = time.Now()

	value, err := json.Marshal(event)
	if err != nil {
		slog.Error("事件序列化失败", "type", event.Type, "error", err)
		return
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.InterfaceName),
		Value: value,
	}); err != nil {
		slog.Error("事件发布失败", "type", event.Type, "interface", event.InterfaceName, "error", err)
	}
}

// Close 关闭发布器
func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
