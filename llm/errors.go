package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-success response from a model API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the same request may succeed later: rate
// limits, overload and server errors.
func (e *APIError) Retryable() bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode == 529:
		return true
	case e.StatusCode == http.StatusRequestTimeout:
		return true
	default:
		return e.StatusCode >= 500
	}
}

// IsRetryable reports whether a failed call is worth repeating. Errors
// that carry a Retryable method decide for themselves; cancellation is
// final; anything else, such as a network failure, is retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return true
}
