package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
)

var (
	// ErrUpstreamUnavailable indicates the provider is not configured
	// (typically a missing API credential). Operator-actionable, not
	// user-actionable.
	ErrUpstreamUnavailable = errors.New("ai provider not configured")
	// ErrUpstreamTimeout indicates the provider call exceeded its deadline
	ErrUpstreamTimeout = errors.New("ai provider call timed out")
	// ErrNoChoicesInResponse is returned when the API response has no choices
	ErrNoChoicesInResponse = errors.New("no choices in response")
)

// UpstreamError represents a failed call to the AI provider
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("upstream error: %s", e.Message)
}

// MalformedResponseError indicates the provider returned content from which
// no subtask list could be recovered. Raw carries the original payload for
// server-side diagnostics; it must never be echoed to clients.
type MalformedResponseError struct {
	Raw string
}

func (e *MalformedResponseError) Error() string {
	return "malformed model response: no subtask list found"
}

// IsMalformedResponse reports whether err is a MalformedResponseError
func IsMalformedResponse(err error) bool {
	var malformed *MalformedResponseError
	return errors.As(err, &malformed)
}

// IsQuotaError reports whether err is a provider rate or quota rejection.
// Quota errors should not be retried immediately.
func IsQuotaError(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream) && upstream.StatusCode == http.StatusTooManyRequests
}

// RetryDelay returns how long to wait before retrying a failed provider
// call. Quota exhaustion gets a long backoff; everything else backs off
// exponentially from 30 seconds.
func RetryDelay(err error, retryCount int) time.Duration {
	if IsQuotaError(err) {
		return time.Hour
	}
	if retryCount < 0 {
		retryCount = 0
	}
	if retryCount > 5 {
		retryCount = 5
	}
	return time.Duration(1<<retryCount) * 30 * time.Second
}

// classifyUpstreamError maps SDK and transport errors onto the upstream
// error taxonomy. Deadline expiry becomes ErrUpstreamTimeout; API errors
// keep their HTTP status for logging.
func classifyUpstreamError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrUpstreamTimeout, err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &UpstreamError{
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
		}
	}

	return &UpstreamError{Message: err.Error()}
}
