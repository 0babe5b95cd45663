package services

import (
	"context"
	"time"

	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"go.uber.org/zap"
)

// PaymentSweeper re-confirms payments whose outcome never reached us, for
// instance when every webhook delivery failed or the client never came back.
type PaymentSweeper struct {
	reservations ports.ReservationRepository
	payments     *PaymentService
	interval     time.Duration
	minAge       time.Duration
	batchSize    int
	log          *zap.Logger
}

func NewPaymentSweeper(
	reservations ports.ReservationRepository,
	payments *PaymentService,
	interval, minAge time.Duration,
	batchSize int,
	log *zap.Logger,
) *PaymentSweeper {
	return &PaymentSweeper{
		reservations: reservations,
		payments:     payments,
		interval:     interval,
		minAge:       minAge,
		batchSize:    batchSize,
		log:          log,
	}
}

func (s *PaymentSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("payment sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("min_age", s.minAge))

	for {
		select {
		case <-ctx.Done():
			s.log.Info("payment sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep checks one batch of stale pending payments and returns how many of
// them reached a terminal outcome.
func (s *PaymentSweeper) Sweep(ctx context.Context) int {
	pending, err := s.reservations.ListPendingPayments(ctx, time.Now().UTC().Add(-s.minAge), s.batchSize)
	if err != nil {
		s.log.Error("failed to list pending payments", zap.Error(err))
		return 0
	}

	if len(pending) == 0 {
		return 0
	}

	s.log.Info("re-confirming stale pending payments", zap.Int("count", len(pending)))

	settled := 0
	for _, res := range pending {
		if ctx.Err() != nil {
			break
		}

		applied, err := s.payments.RefreshOutcome(ctx, *res.PaymentIntentID)
		if err != nil {
			s.log.Warn("failed to re-confirm payment",
				zap.String("reservation_id", res.ID.String()),
				zap.String("payment_intent_id", *res.PaymentIntentID),
				zap.Error(err))
			continue
		}

		if applied {
			settled++
		}
	}

	return settled
}
