package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/repository/memory"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReservation(userID, eventID uuid.UUID, createdAt time.Time, paid bool) *domain.Reservation {
	event := &domain.Event{ID: eventID, MaxAttendees: 10, Currency: "usd"}
	if paid {
		event.Price = 1000
		event.IsPaid = true
	}

	return domain.NewReservation(event, userID, "", createdAt)
}

func TestCreate_OneActiveReservationPerUserAndEvent(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	user, event := uuid.New(), uuid.New()
	now := time.Now().UTC()

	first := newReservation(user, event, now, false)
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newReservation(user, event, now, false))
	assert.ErrorIs(t, err, domain.ErrDuplicateReservation)

	_, err = repo.Cancel(ctx, first.ID, now)
	require.NoError(t, err)

	assert.NoError(t, repo.Create(ctx, newReservation(user, event, now, false)))
}

func TestListByUser_NewestFirst(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	user := uuid.New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		res := newReservation(user, uuid.New(), base.Add(time.Duration(i)*time.Hour), false)
		require.NoError(t, repo.Create(ctx, res))
		ids = append(ids, res.ID)
	}

	list, err := repo.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.Equal(t, ids[1], list[1].ID)
	assert.Equal(t, ids[0], list[2].ID)
}

func TestSetPaymentIntent_WriteOnce(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	res := newReservation(uuid.New(), uuid.New(), time.Now().UTC(), true)
	require.NoError(t, repo.Create(ctx, res))

	stored, err := repo.SetPaymentIntent(ctx, res.ID, "pi_first", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "pi_first", *stored.PaymentIntentID)

	stored, err = repo.SetPaymentIntent(ctx, res.ID, "pi_second", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, "pi_first", *stored.PaymentIntentID)

	_, err = repo.GetByPaymentIntentID(ctx, "pi_second")
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)
}

func TestPaymentTransitions_AreConditional(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	res := newReservation(uuid.New(), uuid.New(), now, true)
	require.NoError(t, repo.Create(ctx, res))
	_, err := repo.SetPaymentIntent(ctx, res.ID, "pi_1", now)
	require.NoError(t, err)

	paid, err := repo.MarkPaymentSucceeded(ctx, "pi_1", now)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, paid.PaymentStatus)
	assert.Equal(t, domain.ReservationConfirmed, paid.Status)

	_, err = repo.MarkPaymentSucceeded(ctx, "pi_1", now)
	assert.ErrorIs(t, err, domain.ErrStateConflict)
	_, err = repo.MarkPaymentFailed(ctx, "pi_1", now)
	assert.ErrorIs(t, err, domain.ErrStateConflict)
	_, err = repo.MarkPaidAfterCancel(ctx, "pi_1", now)
	assert.ErrorIs(t, err, domain.ErrStateConflict)
}

func TestCancel_FlagsPaidReservation(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	res := newReservation(uuid.New(), uuid.New(), now, true)
	require.NoError(t, repo.Create(ctx, res))
	_, err := repo.SetPaymentIntent(ctx, res.ID, "pi_1", now)
	require.NoError(t, err)
	_, err = repo.MarkPaymentSucceeded(ctx, "pi_1", now)
	require.NoError(t, err)

	cancelled, err := repo.Cancel(ctx, res.ID, now)
	require.NoError(t, err)
	assert.Equal(t, domain.CompensationRequired, cancelled.Compensation)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = repo.Cancel(ctx, res.ID, now)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	require.NoError(t, repo.RestoreCancelled(ctx, res.ID, now))
	restored, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationConfirmed, restored.Status)
	assert.Equal(t, domain.CompensationNone, restored.Compensation)
	assert.Nil(t, restored.CancelledAt)
}

func TestSetPaymentIntent_RejectsIntentOfAnotherReservation(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	first := newReservation(uuid.New(), uuid.New(), now, true)
	second := newReservation(uuid.New(), uuid.New(), now, true)
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	_, err := repo.SetPaymentIntent(ctx, first.ID, "pi_shared", now)
	require.NoError(t, err)

	_, err = repo.SetPaymentIntent(ctx, second.ID, "pi_shared", now)
	assert.ErrorIs(t, err, domain.ErrIntentAlreadyLinked)

	owner, err := repo.GetByPaymentIntentID(ctx, "pi_shared")
	require.NoError(t, err)
	assert.Equal(t, first.ID, owner.ID)

	untouched, err := repo.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, untouched.HasIntent())

	again, err := repo.SetPaymentIntent(ctx, first.ID, "pi_shared", now)
	require.NoError(t, err)
	assert.Equal(t, "pi_shared", *again.PaymentIntentID)
}

func TestMarkCapturedAfterFailure_FlagsOnce(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	now := time.Now().UTC()
	res := newReservation(uuid.New(), uuid.New(), now, true)
	require.NoError(t, repo.Create(ctx, res))
	_, err := repo.SetPaymentIntent(ctx, res.ID, "pi_1", now)
	require.NoError(t, err)

	_, err = repo.MarkCapturedAfterFailure(ctx, "pi_1", now)
	assert.ErrorIs(t, err, domain.ErrStateConflict)

	_, err = repo.MarkPaymentFailed(ctx, "pi_1", now)
	require.NoError(t, err)

	flagged, err := repo.MarkCapturedAfterFailure(ctx, "pi_1", now)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, flagged.PaymentStatus)
	assert.Equal(t, domain.CompensationRequired, flagged.Compensation)

	_, err = repo.MarkCapturedAfterFailure(ctx, "pi_1", now)
	assert.ErrorIs(t, err, domain.ErrStateConflict)

	_, err = repo.Cancel(ctx, res.ID, now)
	require.NoError(t, err)
	require.NoError(t, repo.RestoreCancelled(ctx, res.ID, now))

	restored, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CompensationRequired, restored.Compensation)
	assert.Equal(t, domain.ReservationPending, restored.Status)
}

func TestListPendingPayments_OnlyStaleOpenIntents(t *testing.T) {
	repo := memory.NewReservationRepository()
	ctx := context.Background()
	old := time.Now().UTC().Add(-time.Hour)

	withIntent := newReservation(uuid.New(), uuid.New(), old, true)
	require.NoError(t, repo.Create(ctx, withIntent))
	_, err := repo.SetPaymentIntent(ctx, withIntent.ID, "pi_stale", old)
	require.NoError(t, err)

	withoutIntent := newReservation(uuid.New(), uuid.New(), old, true)
	require.NoError(t, repo.Create(ctx, withoutIntent))

	fresh := newReservation(uuid.New(), uuid.New(), time.Now().UTC(), true)
	require.NoError(t, repo.Create(ctx, fresh))
	_, err = repo.SetPaymentIntent(ctx, fresh.ID, "pi_fresh", time.Now().UTC())
	require.NoError(t, err)

	pending, err := repo.ListPendingPayments(ctx, time.Now().UTC().Add(-time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, withIntent.ID, pending[0].ID)
}
