package circuitbreaker

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(threshold int) (*CircuitBreaker, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	return New(threshold).WithResetDelay(time.Minute).WithClock(c.now), c
}

func TestCircuitBreaker_StartsClosed(t *testing.T) {
	cb, _ := newTestBreaker(3)

	assert.Equal(t, StateClosed, cb.GetState(), "Circuit breaker should start closed")
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(3)

	cb.RecordFailure("timeout")
	cb.RecordFailure("timeout")
	assert.Equal(t, StateClosed, cb.GetState())

	cb.RecordFailure("timeout")
	assert.Equal(t, StateOpen, cb.GetState(), "Circuit should be open after trip")
	assert.ErrorIs(t, cb.Allow(), ErrOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3)

	cb.RecordFailure("x")
	cb.RecordFailure("x")
	cb.RecordSuccess()
	cb.RecordFailure("x")
	cb.RecordFailure("x")

	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_Recovery(t *testing.T) {
	cb, c := newTestBreaker(1)

	cb.RecordFailure("boom")
	require.Equal(t, StateOpen, cb.GetState())

	c.advance(30 * time.Second)
	assert.ErrorIs(t, cb.Allow(), ErrOpen, "still cooling down")

	c.advance(31 * time.Second)
	require.NoError(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.GetState())

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState(), "Circuit should close after successful probe")
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	cb, c := newTestBreaker(2)

	cb.RecordFailure("a")
	cb.RecordFailure("b")
	c.advance(2 * time.Minute)
	require.NoError(t, cb.Allow())

	cb.RecordFailure("c")
	assert.Equal(t, StateOpen, cb.GetState())
	assert.ErrorIs(t, cb.Allow(), ErrOpen)
}

func TestCircuitBreaker_SuccessThreshold(t *testing.T) {
	cb, c := newTestBreaker(1)
	cb.WithSuccessThreshold(2)

	cb.RecordFailure("x")
	c.advance(2 * time.Minute)
	require.NoError(t, cb.Allow())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.GetState())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.GetState())
}

func TestCircuitBreaker_Reset(t *testing.T) {
	cb, _ := newTestBreaker(1)
	cb.RecordFailure("x")
	require.Equal(t, StateOpen, cb.GetState())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.GetState())
	assert.NoError(t, cb.Allow())
}

func TestCircuitBreaker_Callbacks(t *testing.T) {
	tripped := make(chan string, 1)
	var states []State

	cb, _ := newTestBreaker(1)
	cb.WithTripCallback(func(reason string) { tripped <- reason }).
		WithStateCallback(func(s State) { states = append(states, s) })

	cb.RecordFailure("upstream 502")

	select {
	case reason := <-tripped:
		assert.Contains(t, reason, "upstream 502")
	case <-time.After(time.Second):
		t.Fatal("trip callback not called")
	}
	assert.Equal(t, []State{StateOpen}, states)
}

func TestState_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]State{"state": StateHalfOpen})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"half-open"}`, string(data))
	assert.Equal(t, "state(9)", State(9).String())
}
