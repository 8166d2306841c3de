package jobs

import "errors"

var (
	// ErrJobNotFound - the job ID is unknown or already swept.
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyRunning - a non-terminal job exists for the engagement.
	// One report pipeline per engagement at a time.
	ErrJobAlreadyRunning = errors.New("a job is already running for this engagement")

	// ErrJobNotCancellable - the job already reached a terminal state.
	ErrJobNotCancellable = errors.New("job is not cancellable")

	// ErrShuttingDown - the service is draining and rejects new submissions.
	ErrShuttingDown = errors.New("job service is shutting down")
)
