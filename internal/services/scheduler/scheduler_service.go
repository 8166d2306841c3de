package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
)

// taskEntry represents a registered task with metadata
type taskEntry struct {
	name      string
	schedule  string
	handler   func() error
	cronID    cron.EntryID
	lastRun   *time.Time
	lastError string
}

// Service implements SchedulerService. It runs housekeeping tasks on cron
// schedules, currently the stale job sweep.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	mu      sync.Mutex
	tasks   map[string]*taskEntry
	running bool
}

// NewService creates a new scheduler service
func NewService(logger arbor.ILogger) interfaces.SchedulerService {
	return &Service{
		cron:   cron.New(),
		logger: logger,
		tasks:  make(map[string]*taskEntry),
	}
}

// RegisterTask registers a task under a cron schedule
func (s *Service) RegisterTask(name string, schedule string, handler func() error) error {
	if handler == nil {
		return fmt.Errorf("task %s: handler is required", name)
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[name]; exists {
		return fmt.Errorf("task %s already registered", name)
	}

	entry := &taskEntry{
		name:     name,
		schedule: schedule,
		handler:  handler,
	}

	cronID, err := s.cron.AddFunc(schedule, func() {
		s.executeTask(name)
	})
	if err != nil {
		return fmt.Errorf("failed to add task to cron: %w", err)
	}

	entry.cronID = cronID
	s.tasks[name] = entry

	s.logger.Info().
		Str("task_name", name).
		Str("schedule", schedule).
		Msg("Scheduled task registered")

	return nil
}

// Start begins executing registered tasks
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().Int("tasks", len(s.tasks)).Msg("Scheduler started")
	return nil
}

// Stop halts the scheduler and waits for running handlers to finish
func (s *Service) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// IsRunning returns true if the scheduler is active
func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// TaskStatus returns the status of a registered task
func (s *Service) TaskStatus(name string) (*interfaces.ScheduledTask, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.tasks[name]
	if !exists {
		return nil, false
	}

	var nextRun *time.Time
	for _, cronEntry := range s.cron.Entries() {
		if cronEntry.ID == entry.cronID {
			next := cronEntry.Next
			nextRun = &next
			break
		}
	}

	return &interfaces.ScheduledTask{
		Name:     entry.name,
		Schedule: entry.schedule,
		LastRun:  entry.lastRun,
		NextRun:  nextRun,
		LastErr:  entry.lastError,
	}, true
}

// executeTask runs a task handler with panic recovery
func (s *Service) executeTask(name string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("task_name", name).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("PANIC RECOVERED in scheduled task")

			s.mu.Lock()
			if entry, exists := s.tasks[name]; exists {
				entry.lastError = fmt.Sprintf("panic: %v", r)
			}
			s.mu.Unlock()
		}
	}()

	s.mu.Lock()
	entry, exists := s.tasks[name]
	if !exists {
		s.mu.Unlock()
		s.logger.Warn().Str("task_name", name).Msg("Scheduled task not found")
		return
	}
	handler := entry.handler
	now := time.Now()
	entry.lastRun = &now
	s.mu.Unlock()

	s.logger.Debug().Str("task_name", name).Msg("Scheduled task started")

	err := handler()

	s.mu.Lock()
	if err != nil {
		entry.lastError = err.Error()
	} else {
		entry.lastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn().Err(err).Str("task_name", name).Msg("Scheduled task failed")
		return
	}

	s.logger.Debug().Str("task_name", name).Msg("Scheduled task completed")
}
