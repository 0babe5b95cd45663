package retry

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	// AttemptTimeout bounds each individual attempt. Zero means no bound.
	AttemptTimeout  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// JitterFactor in [0,1] spreads waits by ±factor.
	JitterFactor float64
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:      3,
		AttemptTimeout:  10 * time.Second,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	}
}

type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent marks err so Do stops retrying and returns it unwrapped.
func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &PermanentError{Err: err}
}

type Operation func(ctx context.Context) error

// Do runs op until it succeeds, returns a permanent error, the parent
// context ends, or the retry budget is spent. The last attempt's error is
// joined with ErrMaxRetriesExceeded on exhaustion.
func Do(ctx context.Context, cfg Config, op Operation) error {
	interval := cfg.InitialInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := withJitter(interval, cfg.JitterFactor)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return errors.Join(ctx.Err(), lastErr)
			case <-timer.C:
			}

			interval = nextInterval(interval, cfg)
		}

		lastErr = runAttempt(ctx, cfg.AttemptTimeout, op)
		if lastErr == nil {
			return nil
		}

		var perm *PermanentError
		if errors.As(lastErr, &perm) {
			return perm.Err
		}

		if ctx.Err() != nil {
			return errors.Join(ctx.Err(), lastErr)
		}
	}

	return errors.Join(ErrMaxRetriesExceeded, lastErr)
}

func runAttempt(ctx context.Context, timeout time.Duration, op Operation) error {
	if timeout <= 0 {
		return op(ctx)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return op(attemptCtx)
}

func nextInterval(current time.Duration, cfg Config) time.Duration {
	multiplier := cfg.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	next := time.Duration(float64(current) * multiplier)
	if cfg.MaxInterval > 0 && next > cfg.MaxInterval {
		next = cfg.MaxInterval
	}

	return next
}

func withJitter(d time.Duration, factor float64) time.Duration {
	if factor <= 0 {
		return d
	}
	if factor > 1 {
		factor = 1
	}

	delta := float64(d) * factor
	return time.Duration(float64(d) - delta + rand.Float64()*2*delta)
}
