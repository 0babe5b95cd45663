package services

import (
	"context"
	"fmt"

	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
)

// callGateway runs op under the retry policy. Any failure left after the
// budget is spent is reported as domain.ErrGateway.
func callGateway(ctx context.Context, cfg retry.Config, op retry.Operation) error {
	if err := retry.Do(ctx, cfg, op); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	return nil
}
