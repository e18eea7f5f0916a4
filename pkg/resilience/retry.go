package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	return p
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
// Delays double after each failure with 10% jitter, capped at MaxDelay.
func Retry(ctx context.Context, name string, policy RetryPolicy, fn func(ctx context.Context) error) error {
	policy = policy.withDefaults()
	logger := slog.Default().With("component", "retry", "operation", name)

	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == policy.MaxAttempts {
			return fmt.Errorf("%s failed after %d attempts: %w", name, attempt, err)
		}

		delay := backoff(attempt, policy)
		logger.Warn("attempt failed, retrying", "attempt", attempt, "error", err, "next_delay", delay)
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s aborted after %d attempts: %w", name, attempt, ctx.Err())
		}
	}
}

func backoff(attempt int, policy RetryPolicy) time.Duration {
	d := policy.InitialDelay << (attempt - 1)
	if d <= 0 || d > policy.MaxDelay {
		d = policy.MaxDelay
	}
	jitter := time.Duration(float64(d) * 0.1 * (2*rand.Float64() - 1))
	return d + jitter
}
