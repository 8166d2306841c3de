package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventJobProgress carries a JobProgressEvent payload. Published by the
	// pipeline goroutine at every stage transition; the job registry applies
	// it to the job record.
	EventJobProgress EventType = "job_progress"

	// EventJobWarning carries a JobWarningEvent payload for non-fatal issues
	// accumulated during a run.
	EventJobWarning EventType = "job_warning"

	// EventReportSaved carries the report ID once an artifact is persisted.
	EventReportSaved EventType = "report_saved"
)

// JobProgressEvent is the payload for EventJobProgress. Stage and progress
// describe where the pipeline is; the registry clamps progress so it never
// moves backwards.
type JobProgressEvent struct {
	JobID    string `json:"job_id"`
	Stage    string `json:"stage"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
}

// JobWarningEvent is the payload for EventJobWarning.
type JobWarningEvent struct {
	JobID   string `json:"job_id"`
	Warning string `json:"warning"`
}

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages the pub/sub event bus
type EventService interface {
	// Subscribe to an event type
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish an event to all subscribers asynchronously
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes an event and waits for all handlers to complete.
	// Progress events use this so ordering is preserved per job.
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
