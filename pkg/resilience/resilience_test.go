package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b := NewBreaker("redis", BreakerConfig{FailureThreshold: 2, ResetTimeout: time.Minute})
	calls := 0
	failing := func() error { calls++; return errBackend }

	require.ErrorIs(t, b.Do(failing), errBackend)
	require.Equal(t, StateClosed, b.State())
	require.ErrorIs(t, b.Do(failing), errBackend)
	require.Equal(t, StateOpen, b.State())

	require.ErrorIs(t, b.Do(failing), ErrCircuitOpen)
	require.Equal(t, 2, calls)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker("redis", BreakerConfig{FailureThreshold: 2})
	_ = b.Do(func() error { return errBackend })
	require.NoError(t, b.Do(func() error { return nil }))
	_ = b.Do(func() error { return errBackend })
	require.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker("redis", BreakerConfig{FailureThreshold: 1, ResetTimeout: time.Second})
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errBackend })
	require.Equal(t, StateOpen, b.State())

	now = now.Add(2 * time.Second)
	require.ErrorIs(t, b.Do(func() error { return errBackend }), errBackend)
	require.Equal(t, StateOpen, b.State())
	require.ErrorIs(t, b.Do(func() error { return nil }), ErrCircuitOpen)

	now = now.Add(2 * time.Second)
	require.NoError(t, b.Do(func() error { return nil }))
	require.Equal(t, StateClosed, b.State())
}

func TestRetrySucceedsEventually(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "publish", RetryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errBackend
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
}

func TestRetryGivesUp(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), "publish", RetryPolicy{MaxAttempts: 2, InitialDelay: time.Millisecond}, func(context.Context) error {
		attempts++
		return errBackend
	})
	require.ErrorIs(t, err, errBackend)
	require.Equal(t, 2, attempts)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, "publish", RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour}, func(context.Context) error {
		attempts++
		cancel()
		return errBackend
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, attempts)
}

func TestBackoffCapped(t *testing.T) {
	p := RetryPolicy{InitialDelay: time.Second, MaxDelay: 2 * time.Second}.withDefaults()
	require.InDelta(t, float64(time.Second), float64(backoff(1, p)), float64(100*time.Millisecond))
	require.InDelta(t, float64(2*time.Second), float64(backoff(5, p)), float64(200*time.Millisecond))
}
