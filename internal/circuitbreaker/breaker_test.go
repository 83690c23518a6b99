package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_TripsOpenAfterConsecutiveFailures(t *testing.T) {
	cb := New(&Config{
		Name:        "test",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 3 },
	})

	failing := func() error { return errors.New("boom") }

	for i := 0; i < 3; i++ {
		_ = cb.Execute(failing)
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestExecute_HalfOpenRecoversToClosedOnSuccess(t *testing.T) {
	cb := New(&Config{
		Name:        "test",
		MaxRequests: 1,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_ = cb.Execute(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecute_HalfOpenFailureReturnsToOpen(t *testing.T) {
	cb := New(&Config{
		Name:        "test",
		MaxRequests: 1,
		Timeout:     10 * time.Millisecond,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})

	_ = cb.Execute(func() error { return errors.New("boom") })
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, StateHalfOpen, cb.State())

	_ = cb.Execute(func() error { return errors.New("still failing") })
	assert.Equal(t, StateOpen, cb.State())
}

func TestExecute_NoUnderlyingCallWhileOpen(t *testing.T) {
	cb := New(&Config{
		Name:        "test",
		MaxRequests: 1,
		Timeout:     time.Minute,
		ReadyToTrip: func(c Counts) bool { return c.ConsecutiveFailures >= 1 },
	})
	_ = cb.Execute(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	assert.False(t, called, "circuit open must not invoke the wrapped call")
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestDefaultConfig_FiveConsecutiveFailuresTrips(t *testing.T) {
	cb := New(DefaultConfig("default-test"))
	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return errors.New("boom") })
	}
	assert.Equal(t, StateClosed, cb.State(), "4 failures should not trip a 5-consecutive-failure policy")

	_ = cb.Execute(func() error { return errors.New("boom") })
	assert.Equal(t, StateOpen, cb.State())
}
