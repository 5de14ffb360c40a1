// File: /services/event_publisher.go
package services

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"communehub-api/models"
)

// EventPublisher emits membership events to kafka for downstream consumers
// (feeds, analytics). Messages are keyed by community id so every community's
// events stay ordered on one partition.
type EventPublisher struct {
	writer *kafka.Writer
}

func NewEventPublisher(brokers []string, topic string) *EventPublisher {
	return &EventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		},
	}
}

func (p *EventPublisher) Publish(ctx context.Context, event models.MembershipEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.CommunityID),
		Value: value,
	})
}

func (p *EventPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
