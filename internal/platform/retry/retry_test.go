package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
	"github.com/stretchr/testify/assert"
)

func fastConfig(maxRetries int) retry.Config {
	return retry.Config{
		MaxRetries:      maxRetries,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := retry.Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("temporary")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustsBudget(t *testing.T) {
	calls := 0
	boom := errors.New("unavailable")
	err := retry.Do(context.Background(), fastConfig(2), func(ctx context.Context) error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	boom := errors.New("card declined")
	err := retry.Do(context.Background(), fastConfig(5), func(ctx context.Context) error {
		calls++
		return retry.Permanent(boom)
	})

	assert.Equal(t, boom, err)
	assert.Equal(t, 1, calls)
}

func TestDo_AttemptTimeout(t *testing.T) {
	cfg := fastConfig(1)
	cfg.AttemptTimeout = 5 * time.Millisecond

	err := retry.Do(context.Background(), cfg, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
}

func TestDo_ParentContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry.Do(ctx, fastConfig(3), func(ctx context.Context) error {
		return errors.New("unreachable gateway")
	})

	assert.ErrorIs(t, err, context.Canceled)
}
