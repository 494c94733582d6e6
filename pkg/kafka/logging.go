package kafka

import (
	"context"
	"slotbook/pkg/logger"
	"time"
)

// LoggingMiddleware logs the outcome of every publish.
func LoggingMiddleware(log *logger.Logger) ProducerMiddleware {
	return func(ctx context.Context, msg Message, next func(ctx context.Context, msg Message) error) error {
		start := time.Now()

		err := next(ctx, msg)

		args := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"correlation_id", msg.GetCorrelationID(),
			"duration_ms", time.Since(start).Milliseconds(),
		}

		if err != nil {
			log.Error("Failed to publish message", append(args, "error", err, "error_type", ClassifyError(err).String())...)
		} else {
			log.Debug("Published message", args...)
		}

		return err
	}
}
