// Package kafka carries termsearch query events over segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
)

// DefaultQueryEventsTopic is used when kafka.topics.queryEvents is empty.
const DefaultQueryEventsTopic = "termsearch-query-events"

// Event is one JSON message. Messages with the same Key land on the same
// partition, so events for one search term stay ordered.
type Event struct {
	Key   string
	Value any
}

// Producer writes query events to one topic.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewProducer does not dial; the first Publish connects. The writer makes a
// single attempt per call because the analytics collector already retries
// with backoff.
func NewProducer(cfg config.KafkaConfig, topic string) *Producer {
	topic = topicOrDefault(topic)
	return &Producer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           20 * time.Millisecond,
			MaxAttempts:            1,
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
		},
		logger: slog.Default().With("component", "kafka-producer", "topic", topic),
	}
}

// Publish encodes event.Value as JSON and waits for the brokers to
// acknowledge it.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event.Value)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", p.writer.Topic, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(event.Key), Value: value})
	if err != nil {
		return fmt.Errorf("writing to %s: %w", p.writer.Topic, err)
	}
	p.logger.Debug("event published", "key", event.Key, "bytes", len(value))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

func topicOrDefault(topic string) string {
	if topic == "" {
		return DefaultQueryEventsTopic
	}
	return topic
}
