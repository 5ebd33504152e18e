package qonto

import (
	"fmt"
	"time"
)

// AuthError indicates invalid API credentials. It is fatal for the client
// instance: retrying with the same credential pair cannot succeed.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "qonto: authentication failed: " + e.Message
}

// RateLimitError indicates the API throttled the request. It is transient
// and handled inside the client by sleeping for RetryAfter and re-issuing
// the same request; callers of the streaming API never observe it.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("qonto: rate limit exceeded, retry after %s", e.RetryAfter)
}

// APIError covers transport failures and non-auth, non-throttle HTTP errors
// that survived the transport retry budget.
type APIError struct {
	StatusCode int // 0 when the request never produced a response
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("qonto: api request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return "qonto: api request failed: " + e.Message
}

func (e *APIError) Unwrap() error {
	return e.Err
}
