// -----------------------------------------------------------------------
// Job Registry - Mutex-guarded in-memory store of report job state
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
)

// Registry owns every job record. All mutation happens under its lock;
// callers only ever receive copies. The pipeline goroutine never touches
// records directly: progress and warnings arrive as events applied by the
// registry's handlers, terminal transitions through complete/fail.
type Registry struct {
	mu      sync.RWMutex
	jobs    map[string]*models.ReportJob
	order   []string // insertion order, for most-recent-per-engagement
	cancels map[string]context.CancelFunc
	logger  arbor.ILogger
}

// NewRegistry creates an empty job registry.
func NewRegistry(logger arbor.ILogger) *Registry {
	return &Registry{
		jobs:    make(map[string]*models.ReportJob),
		cancels: make(map[string]context.CancelFunc),
		logger:  logger,
	}
}

// create adds a pending job unless a non-terminal job already exists for
// the engagement. The check and insert share one critical section so two
// concurrent submissions cannot both pass.
func (r *Registry) create(jobID, engagementID string, cancel context.CancelFunc) (*models.ReportJob, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		existing := r.jobs[r.order[i]]
		if existing != nil && existing.EngagementID == engagementID && !existing.IsTerminal() {
			return nil, ErrJobAlreadyRunning
		}
	}

	job := models.NewReportJob(jobID, engagementID)
	r.jobs[jobID] = job
	r.order = append(r.order, jobID)
	r.cancels[jobID] = cancel

	return job, nil
}

// Status returns a copy of the job.
func (r *Registry) Status(jobID string) (models.ReportJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return models.ReportJob{}, false
	}
	return job.Clone(), true
}

// StatusByEngagement returns the most recently created job for the
// engagement.
func (r *Registry) StatusByEngagement(engagementID string) (models.ReportJob, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.order) - 1; i >= 0; i-- {
		job := r.jobs[r.order[i]]
		if job != nil && job.EngagementID == engagementID {
			return job.Clone(), true
		}
	}
	return models.ReportJob{}, false
}

// HandleProgressEvent applies a JobProgressEvent to its job. Terminal jobs
// ignore late events; progress is clamped monotonic by the model.
func (r *Registry) HandleProgressEvent(ctx context.Context, event interfaces.Event) error {
	payload, ok := event.Payload.(interfaces.JobProgressEvent)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[payload.JobID]
	if !exists || job.IsTerminal() {
		return nil
	}

	if job.Status == models.JobStatusPending {
		job.MarkStarted()
	}
	job.ApplyProgress(models.JobStage(payload.Stage), payload.Progress, payload.Message)

	return nil
}

// HandleWarningEvent appends a JobWarningEvent to its job.
func (r *Registry) HandleWarningEvent(ctx context.Context, event interfaces.Event) error {
	payload, ok := event.Payload.(interfaces.JobWarningEvent)
	if !ok {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	job, exists := r.jobs[payload.JobID]
	if !exists || job.IsTerminal() {
		return nil
	}

	job.AddWarning(payload.Warning)

	return nil
}

// complete moves the job to its successful terminal state.
func (r *Registry) complete(jobID, reportID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.IsTerminal() {
		return
	}
	job.MarkComplete(reportID)
	delete(r.cancels, jobID)
}

// fail moves the job to its failed terminal state.
func (r *Registry) fail(jobID, errorMsg string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || job.IsTerminal() {
		return
	}
	job.MarkFailed(errorMsg)
	delete(r.cancels, jobID)
}

// cancel invokes the job's context cancel func. The pipeline observes it
// at the next stage boundary or retry sleep and fails the job there.
func (r *Registry) cancel(jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if job.IsTerminal() {
		return ErrJobNotCancellable
	}

	if cancelFn, exists := r.cancels[jobID]; exists {
		cancelFn()
	}
	job.Message = "cancellation requested"

	return nil
}

// cancelAll fires every outstanding cancel func. Used during shutdown.
func (r *Registry) cancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cancelFn := range r.cancels {
		cancelFn()
	}
}

// SweepStale removes terminal jobs whose completion is older than maxAge.
// Running and pending jobs are never swept.
func (r *Registry) SweepStale(maxAge time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	kept := r.order[:0]

	for _, jobID := range r.order {
		job := r.jobs[jobID]
		if job == nil {
			continue
		}
		if job.IsTerminal() && job.CompletedAt != nil && job.CompletedAt.Before(cutoff) {
			delete(r.jobs, jobID)
			delete(r.cancels, jobID)
			removed++
			continue
		}
		kept = append(kept, jobID)
	}
	r.order = kept

	if removed > 0 {
		r.logger.Info().
			Int("removed", removed).
			Int("remaining", len(r.jobs)).
			Msg("Swept stale jobs")
	}

	return removed
}

// count returns the number of tracked jobs.
func (r *Registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
