// -----------------------------------------------------------------------
// Job Service - Submission, status, cancellation, and sweep entry points
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
	"github.com/ternarybob/arbor"
)

// Service implements interfaces.JobService. Submission is fire-and-forget:
// the pipeline runs on its own goroutine with a job-scoped context, and
// callers poll for status.
type Service struct {
	registry     *Registry
	orchestrator *Orchestrator
	events       interfaces.EventService
	logger       arbor.ILogger

	mu           sync.Mutex
	shuttingDown bool
	wg           sync.WaitGroup
}

var _ interfaces.JobService = (*Service)(nil)

// NewService wires the registry's event handlers and returns the job
// service.
func NewService(registry *Registry, orchestrator *Orchestrator, events interfaces.EventService, logger arbor.ILogger) (*Service, error) {
	if err := events.Subscribe(interfaces.EventJobProgress, registry.HandleProgressEvent); err != nil {
		return nil, fmt.Errorf("subscribe progress handler: %w", err)
	}
	if err := events.Subscribe(interfaces.EventJobWarning, registry.HandleWarningEvent); err != nil {
		return nil, fmt.Errorf("subscribe warning handler: %w", err)
	}

	return &Service{
		registry:     registry,
		orchestrator: orchestrator,
		events:       events,
		logger:       logger,
	}, nil
}

// Submit creates a job and starts its pipeline. The job context is
// independent of the request context: the caller's request ending must not
// cancel the pipeline.
func (s *Service) Submit(ctx context.Context, engagementID string, opts models.ReportOptions) (string, error) {
	s.mu.Lock()
	if s.shuttingDown {
		s.mu.Unlock()
		return "", ErrShuttingDown
	}
	s.mu.Unlock()

	jobID := common.NewJobID()
	jobCtx, cancel := context.WithCancel(context.Background())

	job, err := s.registry.create(jobID, engagementID, cancel)
	if err != nil {
		cancel()
		return "", err
	}

	s.logger.Info().
		Str("job_id", job.ID).
		Str("engagement_id", engagementID).
		Msg("Report job submitted")

	s.wg.Add(1)
	common.SafeGo(s.logger, "report-pipeline-"+job.ID, func() {
		defer s.wg.Done()
		defer cancel()
		s.run(jobCtx, job.ID, engagementID, opts)
	})

	return job.ID, nil
}

// run executes the pipeline and records the terminal state. A panic inside
// a stage fails the job instead of leaving it running forever.
func (s *Service) run(ctx context.Context, jobID, engagementID string, opts models.ReportOptions) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Str("job_id", jobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Report pipeline panicked")
			s.registry.fail(jobID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	reportID, err := s.orchestrator.Execute(ctx, jobID, engagementID, opts)
	if err != nil {
		s.registry.fail(jobID, err.Error())
		s.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Str("engagement_id", engagementID).
			Msg("Report job failed")
		return
	}

	s.registry.complete(jobID, reportID)

	// Terminal state is recorded; the saved event is fire-and-forget.
	if err := s.events.Publish(context.Background(), interfaces.Event{
		Type:    interfaces.EventReportSaved,
		Payload: reportID,
	}); err != nil {
		s.logger.Warn().Err(err).Str("report_id", reportID).Msg("Failed to publish report saved event")
	}
}

// Status returns a copy of the job.
func (s *Service) Status(jobID string) (models.ReportJob, bool) {
	return s.registry.Status(jobID)
}

// StatusByEngagement returns the most recently created job for the
// engagement.
func (s *Service) StatusByEngagement(engagementID string) (models.ReportJob, bool) {
	return s.registry.StatusByEngagement(engagementID)
}

// Cancel requests cancellation of a running job.
func (s *Service) Cancel(jobID string) error {
	if err := s.registry.cancel(jobID); err != nil {
		return err
	}

	s.logger.Info().Str("job_id", jobID).Msg("Job cancellation requested")
	return nil
}

// SweepStale removes terminal jobs older than maxAge.
func (s *Service) SweepStale(maxAge time.Duration) int {
	return s.registry.SweepStale(maxAge)
}

// Shutdown rejects new submissions, cancels running pipelines, and waits
// for them to finish or the context to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shuttingDown = true
	s.mu.Unlock()

	s.registry.cancelAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("Job service drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("job service shutdown timed out: %w", ctx.Err())
	}
}
