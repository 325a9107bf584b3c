// Package circuitbreaker stops calling the odds provider after repeated
// failures and probes it again once a cooldown has passed.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrOpen is returned by Allow while the circuit is open
var ErrOpen = errors.New("circuit breaker open: upstream calls suspended")

// State represents the current state of the circuit breaker
type State int

// Circuit breaker states
const (
	StateClosed   State = iota // Normal operation
	StateOpen                  // Tripped, upstream calls rejected
	StateHalfOpen              // Testing if the upstream has recovered
)

// String returns the lowercase name of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state by name in JSON payloads
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CircuitBreaker counts consecutive upstream failures and opens once the
// threshold is reached.
type CircuitBreaker struct {
	mu sync.Mutex

	// Current state of the circuit breaker (Closed, Open, HalfOpen)
	state State

	// Consecutive failures observed while closed
	failures int

	// Consecutive failures that trip the circuit
	failureThreshold int

	// Timestamp of the last circuit trip
	lastTrip time.Time

	// Duration before a half-open probe is allowed
	resetDelay time.Duration

	// Count of consecutive successful operations in HalfOpen state
	successCount int

	// Number of successful operations required to close circuit
	successThreshold int

	now func() time.Time

	// Event callbacks for monitoring
	onTripCallback   func(reason string)
	onChangeCallback func(State)
}

// New creates a closed CircuitBreaker that trips after failureThreshold
// consecutive failures
func New(failureThreshold int) *CircuitBreaker {
	if failureThreshold <= 0 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		state:            StateClosed,
		failureThreshold: failureThreshold,
		resetDelay:       30 * time.Second,
		successThreshold: 1,
		now:              time.Now,
	}
}

// WithResetDelay sets a custom reset delay and returns the circuit breaker
func (cb *CircuitBreaker) WithResetDelay(delay time.Duration) *CircuitBreaker {
	cb.resetDelay = delay
	return cb
}

// WithSuccessThreshold sets the number of successful operations needed to close the circuit
func (cb *CircuitBreaker) WithSuccessThreshold(threshold int) *CircuitBreaker {
	if threshold > 0 {
		cb.successThreshold = threshold
	}
	return cb
}

// WithTripCallback sets a callback function that is called when the circuit trips
func (cb *CircuitBreaker) WithTripCallback(callback func(reason string)) *CircuitBreaker {
	cb.onTripCallback = callback
	return cb
}

// WithStateCallback sets a callback invoked synchronously on every state change
func (cb *CircuitBreaker) WithStateCallback(callback func(State)) *CircuitBreaker {
	cb.onChangeCallback = callback
	return cb
}

// WithClock replaces the time source and returns the circuit breaker
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.now = now
	return cb
}

// Allow reports whether an upstream call may proceed. An open circuit whose
// reset delay has elapsed moves to half-open and lets the call through.
func (cb *CircuitBreaker) Allow() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != StateOpen {
		return nil
	}

	if cb.now().Sub(cb.lastTrip) < cb.resetDelay {
		return ErrOpen
	}

	cb.setState(StateHalfOpen)
	cb.successCount = 0
	logrus.Info("Circuit breaker half-open: testing upstream recovery")
	return nil
}

// RecordSuccess registers a successful upstream call
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.setState(StateClosed)
			cb.successCount = 0
			logrus.Info("Circuit breaker closed: upstream has recovered")
		}
	}
}

// RecordFailure registers a failed upstream call. Any failure while
// half-open trips the circuit again.
func (cb *CircuitBreaker) RecordFailure(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		cb.trip(fmt.Sprintf("probe failed: %s", reason))
	case StateClosed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.trip(fmt.Sprintf("%d consecutive failures, last: %s", cb.failures, reason))
		}
	}
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Reset forcibly resets the circuit breaker to closed state
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.setState(StateClosed)
	cb.failures = 0
	cb.successCount = 0
	logrus.Info("Circuit breaker manually reset to closed state")
}

// trip sets the circuit breaker to open state with the current time
func (cb *CircuitBreaker) trip(reason string) {
	cb.setState(StateOpen)
	cb.lastTrip = cb.now()
	cb.failures = 0
	logrus.Warnf("Circuit breaker tripped: %s", reason)

	if cb.onTripCallback != nil {
		go cb.onTripCallback(reason)
	}
}

func (cb *CircuitBreaker) setState(s State) {
	if cb.state == s {
		return
	}
	cb.state = s
	if cb.onChangeCallback != nil {
		cb.onChangeCallback(s)
	}
}
