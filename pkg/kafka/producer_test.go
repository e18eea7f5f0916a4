package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/termsearch/pkg/config"
)

func TestNewProducerDefaults(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "")
	defer p.Close()

	require.Equal(t, DefaultQueryEventsTopic, p.writer.Topic)
	require.Equal(t, 1, p.writer.MaxAttempts)
	require.Equal(t, kafka.RequireAll, p.writer.RequiredAcks)
	require.IsType(t, &kafka.Hash{}, p.writer.Balancer)

	named := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "audit")
	defer named.Close()
	require.Equal(t, "audit", named.writer.Topic)
}

func TestPublishRejectsUnencodableValue(t *testing.T) {
	p := NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "")
	defer p.Close()

	err := p.Publish(context.Background(), Event{Key: "dog", Value: make(chan int)})
	require.ErrorContains(t, err, "encoding termsearch-query-events event")
}
