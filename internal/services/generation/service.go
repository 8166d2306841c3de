// -----------------------------------------------------------------------
// Generation Service - Provider-agnostic text generation with retries
// -----------------------------------------------------------------------

package generation

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/common"
	"github.com/deyman9/AI-Meld-Report-Generator-sub001/internal/interfaces"
)

// Service implements interfaces.GenerationService over the Anthropic and
// Gemini APIs. One provider is active per instance, chosen from config;
// both share the same classifier, retry policy, and rate limiter.
type Service struct {
	claudeConfig *common.ClaudeConfig
	geminiConfig *common.GeminiConfig
	genConfig    *common.GenerationConfig
	kvStorage    interfaces.KeyValueStorage
	logger       arbor.ILogger

	provider common.GenerationProvider
	policy   RetryPolicy
	limiter  *rate.Limiter
	timeout  time.Duration

	// Lazily created provider clients, guarded by mu.
	mu           sync.Mutex
	claudeClient anthropic.Client
	claudeAPIKey string
	geminiClient *genai.Client
}

// Compile-time interface assertion
var _ interfaces.GenerationService = (*Service)(nil)

// NewService creates a generation service for the configured provider.
// Clients are created lazily on first call so the service can start
// before API keys are loaded into the KV store.
func NewService(cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*Service, error) {
	provider := DetectProvider(cfg)

	// A generation-level model overrides the active provider's default.
	claudeConfig := cfg.Claude
	geminiConfig := cfg.Gemini
	if model := NormalizeModel(cfg.Generation.Model); model != "" {
		switch provider {
		case common.ProviderGemini:
			geminiConfig.Model = model
		default:
			claudeConfig.Model = model
		}
	}

	var rateLimit, timeout time.Duration
	switch provider {
	case common.ProviderGemini:
		rateLimit = common.ParseDurationOr(geminiConfig.RateLimit, 4*time.Second)
		timeout = common.ParseDurationOr(geminiConfig.Timeout, 2*time.Minute)
	default:
		rateLimit = common.ParseDurationOr(claudeConfig.RateLimit, time.Second)
		timeout = common.ParseDurationOr(claudeConfig.Timeout, 2*time.Minute)
	}

	service := &Service{
		claudeConfig: &claudeConfig,
		geminiConfig: &geminiConfig,
		genConfig:    &cfg.Generation,
		kvStorage:    kvStorage,
		logger:       logger,
		provider:     provider,
		policy:       NewRetryPolicy(cfg.Generation.MaxAttempts),
		limiter:      rate.NewLimiter(rate.Every(rateLimit), 1),
		timeout:      timeout,
	}

	logger.Debug().
		Str("provider", string(provider)).
		Int("max_attempts", service.policy.MaxAttempts).
		Dur("timeout", timeout).
		Dur("rate_limit", rateLimit).
		Msg("Generation service initialized")

	return service, nil
}

// DetectProvider determines the provider from configuration. A model name
// set on the generation section wins: "gemini/..." or "gemini-*" selects
// Gemini, "claude/...", "anthropic/..." or "claude-*" selects Claude.
// Otherwise the explicit default applies; unset or unrecognized values
// fall back to Claude.
func DetectProvider(cfg *common.Config) common.GenerationProvider {
	model := strings.ToLower(cfg.Generation.Model)
	switch {
	case strings.HasPrefix(model, "claude/"),
		strings.HasPrefix(model, "anthropic/"),
		strings.HasPrefix(model, "claude-"):
		return common.ProviderClaude
	case strings.HasPrefix(model, "gemini/"),
		strings.HasPrefix(model, "google/"),
		strings.HasPrefix(model, "gemini-"):
		return common.ProviderGemini
	}

	switch cfg.Generation.DefaultProvider {
	case common.ProviderClaude, common.ProviderGemini:
		return cfg.Generation.DefaultProvider
	}
	return common.ProviderClaude
}

// NormalizeModel strips an explicit provider prefix from a model name.
func NormalizeModel(model string) string {
	for _, prefix := range []string{"claude/", "anthropic/", "gemini/", "google/"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// Provider identifies the active backing provider.
func (s *Service) Provider() string {
	return string(s.provider)
}

// Generate produces completion text for a prompt, retrying retryable
// failures per the policy. The returned error, when not a context error,
// is always a *Error.
func (s *Service) Generate(ctx context.Context, prompt string, opts interfaces.GenerateOptions) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", invalidRequest("prompt is empty")
	}

	return s.callWithRetry(ctx, CallText, func(callCtx context.Context) (string, error) {
		switch s.provider {
		case common.ProviderGemini:
			return s.geminiGenerate(callCtx, prompt, opts)
		default:
			return s.claudeGenerate(callCtx, prompt, opts)
		}
	})
}

// GenerateFromDocument produces completion text grounded in an attached
// PDF. Size and readability are checked before any provider call; the
// call itself runs under the document retry profile.
func (s *Service) GenerateFromDocument(ctx context.Context, document []byte, systemPrompt, prompt string) (string, error) {
	if len(document) == 0 {
		return "", invalidRequest("document is empty")
	}
	if maxBytes := s.genConfig.MaxDocumentBytes; maxBytes > 0 && int64(len(document)) > maxBytes {
		return "", invalidRequest("document size %d exceeds limit of %d bytes", len(document), maxBytes)
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(document), model.NewDefaultConfiguration())
	if err != nil {
		return "", invalidRequest("document is not a readable PDF: %v", err)
	}

	s.logger.Debug().
		Int("page_count", pdfCtx.PageCount).
		Int("size_bytes", len(document)).
		Msg("Submitting document-grounded generation")

	return s.callWithRetry(ctx, CallDocument, func(callCtx context.Context) (string, error) {
		switch s.provider {
		case common.ProviderGemini:
			return s.geminiGenerateDocument(callCtx, document, systemPrompt, prompt)
		default:
			return s.claudeGenerateDocument(callCtx, document, systemPrompt, prompt)
		}
	})
}

// callWithRetry runs fn under the rate limiter with a per-call timeout,
// classifying every failure and retrying the retryable ones. Cancellation
// of the caller's context aborts between attempts and during backoff
// sleeps.
func (s *Service) callWithRetry(ctx context.Context, kind CallKind, fn func(context.Context) (string, error)) (string, error) {
	var lastErr *Error

	for attempt := 0; attempt < s.policy.MaxAttempts; attempt++ {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", err
		}

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		text, err := fn(callCtx)
		cancel()

		if err == nil {
			return text, nil
		}

		// Caller cancelled: stop immediately, do not classify
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		genErr := Classify(err)
		lastErr = genErr

		if !genErr.Retryable {
			s.logger.Error().
				Str("kind", string(kind)).
				Str("error_type", string(genErr.Type)).
				Err(genErr).
				Msg("Generation call failed")
			return "", genErr
		}

		if attempt == s.policy.MaxAttempts-1 {
			break
		}

		backoff := s.policy.Backoff(kind, attempt, genErr)
		s.logger.Warn().
			Str("kind", string(kind)).
			Str("error_type", string(genErr.Type)).
			Int("attempt", attempt+1).
			Dur("backoff", backoff).
			Msg("Retrying generation call")

		if err := sleepContext(ctx, backoff); err != nil {
			return "", err
		}
	}

	s.logger.Error().
		Str("kind", string(kind)).
		Str("error_type", string(lastErr.Type)).
		Int("attempts", s.policy.MaxAttempts).
		Err(lastErr).
		Msg("Generation call exhausted retries")

	return "", lastErr
}

// HealthCheck verifies the provider is reachable with a minimal probe.
func (s *Service) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.Generate(probeCtx, "ping", interfaces.GenerateOptions{MaxTokens: 16})
	if err != nil {
		return fmt.Errorf("generation health check failed: %w", err)
	}
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("generation health check returned empty response")
	}
	return nil
}

// Close releases provider clients.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claudeClient = anthropic.Client{}
	s.claudeAPIKey = ""
	s.geminiClient = nil
	return nil
}

// getClaudeClient returns the Claude client, creating it on first use.
func (s *Service) getClaudeClient(ctx context.Context) (anthropic.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claudeAPIKey != "" {
		return s.claudeClient, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, s.kvStorage, "anthropic_api_key", s.claudeConfig.APIKey)
	if err != nil {
		return anthropic.Client{}, &Error{
			Type:      ErrorAuthentication,
			Message:   fmt.Sprintf("failed to resolve Anthropic API key: %v", err),
			Retryable: false,
		}
	}

	s.claudeClient = anthropic.NewClient(option.WithAPIKey(apiKey))
	s.claudeAPIKey = apiKey
	return s.claudeClient, nil
}

// getGeminiClient returns the Gemini client, creating it on first use.
func (s *Service) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.geminiClient != nil {
		return s.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, s.kvStorage, "gemini_api_key", s.geminiConfig.APIKey)
	if err != nil {
		return nil, &Error{
			Type:      ErrorAuthentication,
			Message:   fmt.Sprintf("failed to resolve Gemini API key: %v", err),
			Retryable: false,
		}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s.geminiClient = client
	return client, nil
}
