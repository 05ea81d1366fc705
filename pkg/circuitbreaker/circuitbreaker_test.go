package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func failingCalls(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error {
			return errBackend
		})
	}
}

func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := New("test", WithFailureThreshold(3), WithTimeout(time.Minute))

	failingCalls(cb, 2)
	assert.Equal(t, StateClosed, cb.State())

	failingCalls(cb, 1)
	assert.Equal(t, StateOpen, cb.State())

	// While open, calls are rejected without reaching the backend.
	calls := 0
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Zero(t, calls)
}

func TestHalfOpenRecovery(t *testing.T) {
	cb := New("test",
		WithFailureThreshold(1),
		WithSuccessThreshold(2),
		WithTimeout(10*time.Millisecond),
		WithMaxHalfOpenRequests(2),
	)

	failingCalls(cb, 1)
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(15 * time.Millisecond)

	// Successful probes walk the breaker back to closed.
	for i := 0; i < 2; i++ {
		require.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error {
			return nil
		}))
	}
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(10*time.Millisecond))

	failingCalls(cb, 1)
	time.Sleep(15 * time.Millisecond)

	failingCalls(cb, 1)
	assert.Equal(t, StateOpen, cb.State())
}

func TestIsFailureFilter(t *testing.T) {
	benign := errors.New("not found")
	cb := New("test",
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, benign) }),
	)

	// Filtered errors pass through without tripping the breaker.
	err := cb.Execute(context.Background(), func(ctx context.Context) error {
		return benign
	})
	assert.ErrorIs(t, err, benign)
	assert.Equal(t, StateClosed, cb.State())
}

func TestExecuteWithFallback(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(time.Minute))
	failingCalls(cb, 1)

	fallbackUsed := false
	err := cb.ExecuteWithFallback(context.Background(),
		func(ctx context.Context) error { return errBackend },
		func(err error) error {
			fallbackUsed = true
			return nil
		},
	)
	assert.NoError(t, err)
	assert.True(t, fallbackUsed)
}

func TestReset(t *testing.T) {
	cb := New("test", WithFailureThreshold(1), WithTimeout(time.Minute))
	failingCalls(cb, 1)
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.NoError(t, cb.Execute(context.Background(), func(ctx context.Context) error {
		return nil
	}))
}
