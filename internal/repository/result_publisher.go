package repository

import (
	"context"

	"FinCast/internal/domain/models"
)

// eventProducer is the part of pkg/kafka.Producer the publisher needs.
type eventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaResultPublisher implements ResultPublisher for Kafka.
type KafkaResultPublisher struct {
	producer eventProducer
	topic    string
}

// NewKafkaResultPublisher creates the publisher. Events are keyed by run ID.
func NewKafkaResultPublisher(producer eventProducer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: producer, topic: topic}
}

func (p *KafkaResultPublisher) Publish(ctx context.Context, ev models.SimulationEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.ID), ev)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
