// -----------------------------------------------------------------------
// Retry Policy - One backoff policy for every provider call kind
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"math/rand"
	"time"
)

// CallKind selects the retry profile for a provider call. Text calls use
// exponential backoff with jitter; document calls escalate rate-limit
// waits linearly because document-grounded requests consume large token
// windows that refill slowly.
type CallKind string

const (
	CallText     CallKind = "text"
	CallDocument CallKind = "document"
)

// RetryPolicy computes waits between attempts. All provider calls share
// one policy; the profile differences are confined to Backoff.
type RetryPolicy struct {
	// MaxAttempts counts the first try plus retries (default 3).
	MaxAttempts int

	// InitialBackoff seeds the exponential schedule (default 1s).
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait (default 30s). Provider-requested
	// rate-limit delays are honored even above this cap.
	MaxBackoff time.Duration

	// MaxJitter is the upper bound of the random spread added to each
	// exponential wait (default 1s).
	MaxJitter time.Duration

	// DocumentRateLimitStep is the per-attempt escalation for rate-limited
	// document calls (default 30s: waits 30s, 60s, ...).
	DocumentRateLimitStep time.Duration
}

// NewRetryPolicy returns the standard policy with the given attempt count.
// Values of maxAttempts below 1 are clamped to 1.
func NewRetryPolicy(maxAttempts int) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return RetryPolicy{
		MaxAttempts:           maxAttempts,
		InitialBackoff:        time.Second,
		MaxBackoff:            30 * time.Second,
		MaxJitter:             time.Second,
		DocumentRateLimitStep: 30 * time.Second,
	}
}

// Backoff returns the wait before retrying after the given zero-based
// attempt failed with genErr.
//
// Rate limits: text calls honor the provider-requested delay; document
// calls wait DocumentRateLimitStep scaled by the attempt number.
// Everything else: min(InitialBackoff * 2^attempt + jitter, MaxBackoff).
func (p RetryPolicy) Backoff(kind CallKind, attempt int, genErr *Error) time.Duration {
	if genErr != nil && genErr.Type == ErrorRateLimit {
		if kind == CallDocument {
			return time.Duration(attempt+1) * p.DocumentRateLimitStep
		}
		if genErr.RetryAfter > 0 {
			return genErr.RetryAfter
		}
	}

	backoff := p.InitialBackoff << uint(attempt)
	if p.MaxJitter > 0 {
		backoff += time.Duration(rand.Int63n(int64(p.MaxJitter)))
	}
	if backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

// sleepContext waits for d or until ctx is cancelled, whichever comes
// first. This is what makes cancellation observable inside retry loops.
func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
