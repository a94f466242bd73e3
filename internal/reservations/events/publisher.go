package events

import (
	"context"
	"fmt"

	"spacebook/pkg/kafka"
	"spacebook/pkg/logger"
	"spacebook/pkg/model"
)

const (
	Source        = "spacebook"
	SchemaVersion = "1"
)

// Publisher announces committed reservation changes.
type Publisher interface {
	Publish(ctx context.Context, event model.ReservationEvent) error
	Close() error
}

type messageProducer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer messageProducer
}

// NewKafkaPublisher keys messages by space id so each space's events stay ordered.
func NewKafkaPublisher(producer messageProducer) Publisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event model.ReservationEvent) error {
	msg, err := NewMessage(ctx, event)
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}

func NewMessage(ctx context.Context, event model.ReservationEvent) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(event.SpaceID).
		WithValue(event).
		WithEventType(string(event.Type)).
		WithCorrelationID(logger.RequestID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		Build()
}

type nopPublisher struct{}

// NewNopPublisher is used when events are disabled.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, model.ReservationEvent) error { return nil }

func (nopPublisher) Close() error { return nil }
