package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/civic-issue-service/internal/events"
)

func publishWithDefaults(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}
