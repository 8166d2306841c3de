package interfaces

import "time"

// ScheduledTask describes a registered cron task and its run history.
type ScheduledTask struct {
	Name     string
	Schedule string
	LastRun  *time.Time
	NextRun  *time.Time
	LastErr  string
}

// SchedulerService manages cron-based housekeeping tasks.
type SchedulerService interface {
	// RegisterTask registers a task under a cron schedule.
	RegisterTask(name string, schedule string, handler func() error) error

	// Start begins executing registered tasks.
	Start() error

	// Stop halts the scheduler; running handlers finish their current call.
	Stop() error

	// IsRunning returns true if the scheduler is active.
	IsRunning() bool

	// TaskStatus returns the status of a registered task.
	TaskStatus(name string) (*ScheduledTask, bool)
}
