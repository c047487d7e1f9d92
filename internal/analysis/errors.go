package analysis

import (
	"fmt"
	"time"
)

// ErrBadStatus is a non-retryable rejection (4xx other than 429).
type ErrBadStatus struct {
	StatusCode int
	Body       string
}

func (e *ErrBadStatus) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("analysis service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("analysis service returned %d: %s", e.StatusCode, e.Body)
}

// ErrServiceUnavailable means the service could not be reached, failed
// with a 5xx, or rate limited the request.
type ErrServiceUnavailable struct {
	StatusCode int           // 0 for transport failures
	RetryAfter time.Duration // from a Retry-After header, if any
	Err        error
}

func (e *ErrServiceUnavailable) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("analysis service unavailable: %v", e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("analysis service unavailable: status %d", e.StatusCode)
	}
	return "analysis service unavailable"
}

func (e *ErrServiceUnavailable) Unwrap() error { return e.Err }
