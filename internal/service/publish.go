package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/release-queue/internal/events"
)

// publishEvent delivers an event after the state change has been committed.
// Delivery failures are logged and never surface to the caller.
func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, eventType events.EventType, actor string, payload interface{}) {
	if dispatcher == nil {
		return
	}
	event := events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event delivery failed", zap.String("event_type", string(eventType)), zap.Error(err))
	}
}
