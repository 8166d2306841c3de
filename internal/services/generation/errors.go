// -----------------------------------------------------------------------
// Generation Errors - Classified provider failures with retry metadata
// -----------------------------------------------------------------------

package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// ErrorType classifies a provider failure. Every error leaving this
// package carries exactly one of these types; call sites branch on the
// type instead of parsing provider payloads.
type ErrorType string

const (
	ErrorRateLimit      ErrorType = "rate_limit"
	ErrorTokenLimit     ErrorType = "token_limit"
	ErrorAuthentication ErrorType = "authentication"
	ErrorInvalidRequest ErrorType = "invalid_request"
	ErrorServerError    ErrorType = "server_error"
	ErrorTimeout        ErrorType = "timeout"
	ErrorUnknown        ErrorType = "unknown"
)

// defaultRetryAfter applies when a rate-limited response carries no
// usable retry-after hint.
const defaultRetryAfter = 60 * time.Second

// Error is the classified form of any provider failure. Retryable errors
// are retried inside the service; callers only ever see the final one.
type Error struct {
	Type      ErrorType
	Message   string
	Retryable bool
	// RetryAfter is the provider-requested delay before the next attempt.
	// Zero means the provider expressed no preference.
	RetryAfter time.Duration
}

func (e *Error) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("generation %s: %s (retry after %s)", e.Type, e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("generation %s: %s", e.Type, e.Message)
}

// IsRetryable reports whether err is a retryable generation error.
func IsRetryable(err error) bool {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Retryable
	}
	return false
}

// invalidRequest builds a non-retryable invalid_request error. Used for
// pre-flight rejections (empty documents, size caps, unparseable JSON).
func invalidRequest(format string, args ...interface{}) *Error {
	return &Error{
		Type:      ErrorInvalidRequest,
		Message:   fmt.Sprintf(format, args...),
		Retryable: false,
	}
}

// Classify translates any provider failure into an *Error. Anthropic
// errors carry typed status codes; Gemini errors are matched on message
// text the same way their SDK surfaces them.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	// Already classified
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr
	}

	// Anthropic SDK errors expose the HTTP status and response headers
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, apiErr.Error(), retryAfterHeader(apiErr.Response))
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Type: ErrorTimeout, Message: "request timed out", Retryable: true}
	}

	return classifyMessage(err.Error())
}

// classifyStatus maps an HTTP status code to an error type.
func classifyStatus(status int, message string, retryAfter time.Duration) *Error {
	switch {
	case status == http.StatusTooManyRequests:
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}
		return &Error{Type: ErrorRateLimit, Message: message, Retryable: true, RetryAfter: retryAfter}

	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{Type: ErrorAuthentication, Message: message, Retryable: false}

	case status == http.StatusBadRequest:
		if mentionsTokenLimit(message) {
			return &Error{Type: ErrorTokenLimit, Message: message, Retryable: false}
		}
		return &Error{Type: ErrorInvalidRequest, Message: message, Retryable: false}

	case status == http.StatusRequestTimeout:
		return &Error{Type: ErrorTimeout, Message: message, Retryable: true}

	case status >= 500:
		return &Error{Type: ErrorServerError, Message: message, Retryable: true}

	default:
		return &Error{Type: ErrorUnknown, Message: message, Retryable: false}
	}
}

// classifyMessage classifies errors that carry no typed status code.
// Gemini errors arrive this way: "Error 429, Message: ... Status:
// RESOURCE_EXHAUSTED".
func classifyMessage(message string) *Error {
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(message, "429") ||
		strings.Contains(message, "RESOURCE_EXHAUSTED") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "quota"):
		retryAfter := extractRetryDelay(message)
		if retryAfter <= 0 {
			retryAfter = defaultRetryAfter
		}
		return &Error{Type: ErrorRateLimit, Message: message, Retryable: true, RetryAfter: retryAfter}

	case strings.Contains(message, "401") ||
		strings.Contains(message, "403") ||
		strings.Contains(message, "UNAUTHENTICATED") ||
		strings.Contains(message, "PERMISSION_DENIED") ||
		strings.Contains(lower, "api key"):
		return &Error{Type: ErrorAuthentication, Message: message, Retryable: false}

	case strings.Contains(message, "400") || strings.Contains(message, "INVALID_ARGUMENT"):
		if mentionsTokenLimit(message) {
			return &Error{Type: ErrorTokenLimit, Message: message, Retryable: false}
		}
		return &Error{Type: ErrorInvalidRequest, Message: message, Retryable: false}

	case strings.Contains(message, "500") ||
		strings.Contains(message, "502") ||
		strings.Contains(message, "503") ||
		strings.Contains(message, "INTERNAL") ||
		strings.Contains(message, "UNAVAILABLE") ||
		strings.Contains(lower, "overloaded"):
		return &Error{Type: ErrorServerError, Message: message, Retryable: true}

	case strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded"):
		return &Error{Type: ErrorTimeout, Message: message, Retryable: true}

	default:
		return &Error{Type: ErrorUnknown, Message: message, Retryable: false}
	}
}

// mentionsTokenLimit detects 400-class failures caused by prompt or
// completion length rather than malformed input.
func mentionsTokenLimit(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "token") ||
		strings.Contains(lower, "length") ||
		strings.Contains(lower, "too large") ||
		strings.Contains(lower, "too long")
}

// retryAfterHeader reads the retry-after header from a provider response.
// Supports the delta-seconds form; the HTTP-date form is rare enough from
// these providers that it falls back to zero.
func retryAfterHeader(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	value := resp.Header.Get("retry-after")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
// in Gemini error messages.
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// extractRetryDelay parses the API-suggested retry delay from an error
// message. Returns 0 if no delay is present.
func extractRetryDelay(message string) time.Duration {
	matches := retryDelayRegex.FindStringSubmatch(message)
	if len(matches) < 2 {
		return 0
	}
	seconds, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}
