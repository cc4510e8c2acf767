package infosimples

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/labstack/gommon/log"
)

var (
	DefaultRetryDelays  = []time.Duration{1500 * time.Millisecond, 3000 * time.Millisecond, 5000 * time.Millisecond}
	DefaultRetryBackoff = 2000 * time.Millisecond
)

const DefaultRetryAttempts = 3

// RetryPolicy controls WithRetry. Attempts counts every call, the first one
// included. Delays[i] is the base wait before attempt i+2; past the end of
// the list DefaultDelay is used.
type RetryPolicy struct {
	Attempts     int
	Delays       []time.Duration
	DefaultDelay time.Duration

	// Jitter and Sleep are replaceable for tests.
	Jitter func(base time.Duration) time.Duration
	Sleep  func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:     DefaultRetryAttempts,
		Delays:       DefaultRetryDelays,
		DefaultDelay: DefaultRetryBackoff,
		Jitter:       Jitter,
		Sleep:        SleepContext,
	}
}

// WithRetry calls fn until it succeeds, the error is not transient, or the
// attempts run out. Only a *ProviderError with status >= 500 or 0 is
// transient; anything else is returned immediately without sleeping.
func WithRetry[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := max(p.Attempts, 1)
	jitter := p.Jitter
	if jitter == nil {
		jitter = Jitter
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err

		var pe *ProviderError
		if !errors.As(err, &pe) || !pe.Transient() || attempt == attempts-1 {
			return zero, err
		}

		wait := jitter(p.delay(attempt))
		log.Warnf("infosimples: attempt %d/%d failed (%v), retrying in %s", attempt+1, attempts, err, wait)
		if err := sleep(ctx, wait); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	if attempt < len(p.Delays) {
		return p.Delays[attempt]
	}
	if p.DefaultDelay > 0 {
		return p.DefaultDelay
	}
	return DefaultRetryBackoff
}

// Jitter spreads base uniformly over [0.8, 1.2) of its value.
func Jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(math.Round(float64(base) * factor))
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
