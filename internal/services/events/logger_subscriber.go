package events

import (
	"context"
	"fmt"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/ternarybob/arbor"
)

// NewLoggerSubscriber creates an event handler that logs job events with
// structured fields. Payloads are the typed event structs, so fields are
// pulled out via type switch rather than map lookups.
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case interfaces.JobProgressEvent:
			logEvent = logEvent.
				Str("job_id", payload.JobID).
				Str("stage", payload.Stage).
				Int("progress", payload.Progress)
			if payload.Message != "" {
				logEvent = logEvent.Str("message", payload.Message)
			}
		case interfaces.JobWarningEvent:
			logEvent = logEvent.
				Str("job_id", payload.JobID).
				Str("warning", payload.Warning)
		case string:
			logEvent = logEvent.Str("payload", payload)
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventJobProgress,
		interfaces.EventJobWarning,
		interfaces.EventReportSaved,
	}

	for _, eventType := range eventTypes {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("failed to subscribe logger to event type %s: %w", eventType, err)
		}
	}

	logger.Info().
		Int("event_type_count", len(eventTypes)).
		Msg("Logger subscribed to all event types")

	return nil
}
