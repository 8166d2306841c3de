package interfaces

import (
	"context"
)

// GenerateOptions controls a single text generation call.
type GenerateOptions struct {
	// SystemPrompt sets provider-level instructions for the call.
	SystemPrompt string

	// MaxTokens caps the response length. Zero uses the configured default.
	MaxTokens int

	// Temperature overrides the configured sampling temperature when
	// greater than zero. Zero uses the configured default.
	Temperature float32

	// StopSequences halt generation when emitted by the model.
	StopSequences []string
}

// GenerationService is the provider-agnostic text generation client.
// All provider failures surface as *generation.Error values carrying the
// classified error type, retryability, and any provider-requested delay;
// retry behavior lives inside the implementation, not at call sites.
type GenerationService interface {
	// Generate produces completion text for a prompt. Retryable failures
	// (rate limits, server errors, timeouts) are retried internally with
	// exponential backoff before an error is returned.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// GenerateFromDocument produces completion text grounded in an attached
	// document (PDF bytes). Inputs over the configured size cap or empty
	// inputs are rejected before any provider call.
	GenerateFromDocument(ctx context.Context, document []byte, systemPrompt, prompt string) (string, error)

	// Provider identifies the active backing provider ("claude" or "gemini").
	Provider() string

	// HealthCheck verifies the provider is reachable and authenticated.
	HealthCheck(ctx context.Context) error

	// Close releases provider resources.
	Close() error
}
