package repository

import (
	"context"
	"fmt"

	"MarketPulse/internal/domain/models"
	"MarketPulse/internal/domain/repository"
	pkgkafka "MarketPulse/pkg/kafka"
)

// KafkaEventPublisher fans engine notifications out to a Kafka topic. Messages
// are keyed by symbol so per-symbol ordering is preserved across partitions;
// events without a symbol key on the event kind instead.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaEventPublisher creates a Kafka-backed event publisher.
func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) repository.EventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev *models.Event) error {
	if ev == nil {
		return fmt.Errorf("event is nil")
	}
	key := ev.Symbol
	if key == "" {
		key = string(ev.Kind)
	}
	if err := p.producer.Publish(ctx, p.topic, []byte(key), ev); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}

func (p *KafkaEventPublisher) Close() error {
	return p.producer.Close()
}
