package fetch

import (
	"fmt"
	"time"
)

// ConfigError reports a missing or invalid setting detected before any
// request is sent upstream
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("odds client misconfigured: %s is not set", e.Field)
}

// TimeoutError reports that the upstream call exceeded its deadline
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("odds request timed out after %v", e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// UpstreamError carries a non-2xx answer from the odds provider
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("odds API error: status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the failure is worth counting against the
// upstream's health. Client-side (4xx) answers are not.
func (e *UpstreamError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}
