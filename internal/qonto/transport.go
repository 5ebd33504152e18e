package qonto

import (
	"net/http"
	"time"
)

// transient status codes retried by the transport. 429 is included here too:
// the transport-level budget composes under the stream's rate-limit
// sleep-and-retry, which only sees a 429 once the budget is spent.
func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryableMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// retryTransport retries idempotent requests on transient failures with
// exponential backoff: backoff * 2^attempt between attempts.
type retryTransport struct {
	base       http.RoundTripper
	maxRetries int
	backoff    time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error

	attempts := t.maxRetries + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := t.backoff * (1 << (attempt - 1))
			timer := time.NewTimer(wait)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}

			// A request body can only be replayed through GetBody
			if req.Body != nil {
				if req.GetBody == nil {
					break
				}
				body, bodyErr := req.GetBody()
				if bodyErr != nil {
					return nil, bodyErr
				}
				req.Body = body
			}
		}

		resp, err = t.base.RoundTrip(req)
		if err != nil {
			if !isRetryableMethod(req.Method) || req.Context().Err() != nil {
				return nil, err
			}
			continue
		}

		if !isRetryableStatus(resp.StatusCode) || !isRetryableMethod(req.Method) {
			return resp, nil
		}

		if attempt < attempts-1 {
			// Drain so the connection can be reused for the retry
			_ = resp.Body.Close()
		}
	}

	return resp, err
}
