package interfaces

import (
	"context"
	"time"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/models"
)

// JobService owns the in-memory job registry and pipeline dispatch.
// Submit returns immediately; callers poll Status for progress. Job state
// does not survive process restart.
type JobService interface {
	// Submit creates a job for the engagement and starts the pipeline on
	// its own goroutine. Returns ErrJobAlreadyRunning when a non-terminal
	// job exists for the same engagement.
	Submit(ctx context.Context, engagementID string, opts models.ReportOptions) (string, error)

	// Status returns a copy of the job, or false when the ID is unknown
	// (including jobs already swept).
	Status(jobID string) (models.ReportJob, bool)

	// StatusByEngagement returns the most recently created job for an
	// engagement, or false when none exists.
	StatusByEngagement(engagementID string) (models.ReportJob, bool)

	// Cancel requests cancellation of a running job. The pipeline observes
	// it at the next stage boundary or retry sleep.
	Cancel(jobID string) error

	// SweepStale removes terminal jobs older than maxAge and returns the
	// number removed.
	SweepStale(maxAge time.Duration) int

	// Shutdown stops accepting submissions and cancels running jobs.
	Shutdown(ctx context.Context) error
}
