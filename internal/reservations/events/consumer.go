package events

import (
	"context"
	"fmt"

	"spacebook/pkg/kafka"
	"spacebook/pkg/logger"
	"spacebook/pkg/model"
)

// Sink receives decoded reservation events.
type Sink func(ctx context.Context, event model.ReservationEvent) error

// NewHandler decodes reservation events and hands them to sink.
// Undecodable or unknown events are permanent failures and go straight to the DLQ.
func NewHandler(sink Sink) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		if v := msg.Headers[kafka.HeaderSchemaVersion]; v != "" && v != SchemaVersion {
			return kafka.NewPermanentError(fmt.Sprintf("unsupported schema version %q", v), nil)
		}

		var event model.ReservationEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("decode reservation event", err)
		}
		if !event.Type.Valid() {
			return kafka.NewPermanentError(fmt.Sprintf("unknown event type %q", event.Type), nil)
		}

		if id := msg.GetCorrelationID(); id != "" {
			ctx = logger.WithRequestID(ctx, id)
		}
		return sink(ctx, event)
	}
}

// LogSink writes every event to the audit log.
func LogSink(log *logger.Logger) Sink {
	return func(ctx context.Context, event model.ReservationEvent) error {
		log.InfoContext(ctx, "reservation event",
			"type", event.Type,
			"reservation_id", event.ReservationID,
			"space_id", event.SpaceID,
			"owner_id", event.OwnerID,
			"start_time", event.StartTime,
			"end_time", event.EndTime,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}
