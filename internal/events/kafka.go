package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/anoixa/tidypics/internal/worker"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

const (
	publishTimeout = 5 * time.Second
	publishRetries = 3
)

// messageWriter kafka.Writer 的最小接口
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher 通过协程池异步写入 Kafka
type KafkaPublisher struct {
	writer messageWriter
	pool   *worker.Pool
}

// NewKafkaPublisher 创建 Kafka 发布者
func NewKafkaPublisher(brokers []string, topic string, pool *worker.Pool) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}, pool)
}

func newKafkaPublisher(w messageWriter, pool *worker.Pool) *KafkaPublisher {
	return &KafkaPublisher{writer: w, pool: pool}
}

// Publish 序列化事件并提交到协程池，发送失败只记录日志
func (p *KafkaPublisher) Publish(ctx context.Context, event ImageEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.ImageGUID), 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	}

	if !p.pool.Submit(func() { p.send(msg, event) }) {
		return fmt.Errorf("event queue unavailable, dropped %s for image %d", event.Type, event.ImageGUID)
	}
	return nil
}

func (p *KafkaPublisher) send(msg kafka.Message, event ImageEvent) {
	var err error
	for i := 0; i < publishRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err = p.writer.WriteMessages(ctx, msg)
		cancel()
		if err == nil {
			return
		}
		log.Warn().Err(err).Int("attempt", i+1).Str("type", event.Type).Msg("[Events] Failed to publish event")
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	log.Error().Err(err).Str("id", event.ID).Str("type", event.Type).Msg("[Events] Dropping event after retries")
}

// Close 关闭底层 writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
