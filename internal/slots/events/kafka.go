package events

import (
	"context"
	"fmt"
	"slotbook/pkg/kafka"
	"slotbook/pkg/middleware"
	"time"
)

// MessagePublisher is satisfied by *kafka.Producer.
type MessagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	producer MessagePublisher
	source   string
	timeout  time.Duration
}

func NewKafkaPublisher(producer MessagePublisher, source string, timeout time.Duration) Publisher {
	return &kafkaPublisher{
		producer: producer,
		source:   source,
		timeout:  timeout,
	}
}

// Publish sends evt keyed by slot. It is detached from ctx's cancellation so
// an event for a committed change is not lost when the request ends.
func (p *kafkaPublisher) Publish(ctx context.Context, evt Event) error {
	msg, err := kafka.NewMessage().
		WithKey(evt.Key()).
		WithValue(evt).
		WithEventType(evt.Type).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithTimestamp(evt.OccurredAt).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build %s event: %w", evt.Type, err)
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	return p.producer.Publish(pubCtx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.producer.Close()
}
