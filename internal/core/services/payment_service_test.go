package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPaidEvent_IntentThenDuplicateWebhooks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 5000)
	user := uuid.New()

	res, err := f.ledger.Create(ctx, event.ID, user, "")
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPending, res.Status)
	assert.Equal(t, domain.PaymentPending, res.PaymentStatus)
	assert.Equal(t, int64(5000), res.Amount)

	f.gateway.On("CreateIntent", mock.Anything, mock.MatchedBy(func(req ports.IntentRequest) bool {
		return req.Amount == 5000 &&
			req.Currency == "usd" &&
			req.IdempotencyKey == "reservation:"+res.ID.String() &&
			req.Metadata["reservation_id"] == res.ID.String() &&
			req.Metadata["event_id"] == event.ID.String() &&
			req.Metadata["user_id"] == user.String()
	})).Return(&ports.Intent{ID: "pi_123", ClientToken: "pi_123_secret", Status: ports.IntentPending, Amount: 5000, Currency: "usd"}, nil).Once()

	session, err := f.payments.OpenIntent(ctx, res.ID, user)
	require.NoError(t, err)
	assert.Equal(t, "pi_123", session.PaymentIntentID)
	assert.Equal(t, "pi_123_secret", session.ClientToken)
	assert.Equal(t, int64(5000), session.Amount)

	for i := 0; i < 5; i++ {
		updated, err := f.reconciler.ApplyOutcome(ctx, "pi_123", domain.OutcomeSucceeded)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)
		assert.Equal(t, domain.ReservationConfirmed, updated.Status)
	}

	stored, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
	assert.Equal(t, domain.CompensationNone, stored.Compensation)
	assert.Equal(t, 1, f.attendees(t, event.ID))
}

func TestOpenIntent_SecondCallReusesStoredIntent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 1200)
	user := uuid.New()
	res, err := f.ledger.Create(ctx, event.ID, user, "")
	require.NoError(t, err)

	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).
		Return(&ports.Intent{ID: "pi_once", ClientToken: "secret_once", Status: ports.IntentPending}, nil).Once()
	f.gateway.On("RetrieveIntent", mock.Anything, "pi_once").
		Return(&ports.Intent{ID: "pi_once", ClientToken: "secret_once", Status: ports.IntentPending, Amount: 1200, Currency: "usd"}, nil).Once()

	first, err := f.payments.OpenIntent(ctx, res.ID, user)
	require.NoError(t, err)
	second, err := f.payments.OpenIntent(ctx, res.ID, user)
	require.NoError(t, err)

	assert.Equal(t, first.PaymentIntentID, second.PaymentIntentID)
	assert.Equal(t, "secret_once", second.ClientToken)
}

func TestOpenIntent_IntentOfAnotherReservationIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 1200)
	owner := f.reservePaid(t, event, "pi_taken")
	user := uuid.New()
	res, err := f.ledger.Create(ctx, event.ID, user, "")
	require.NoError(t, err)

	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).
		Return(&ports.Intent{ID: "pi_taken", ClientToken: "secret_taken", Status: ports.IntentPending}, nil).Once()

	_, err = f.payments.OpenIntent(ctx, res.ID, user)
	assert.ErrorIs(t, err, domain.ErrIntentAlreadyLinked)
	f.gateway.AssertNotCalled(t, "CancelIntent", mock.Anything, "pi_taken")

	linked, err := f.reservations.GetByPaymentIntentID(ctx, "pi_taken")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, linked.ID)

	stored, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PaymentIntentID)
}

func TestOpenIntent_Preconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	free := f.addEvent(t, 10, 0)
	paid := f.addEvent(t, 10, 900)
	user := uuid.New()

	freeRes, err := f.ledger.Create(ctx, free.ID, user, "")
	require.NoError(t, err)
	paidRes, err := f.ledger.Create(ctx, paid.ID, user, "")
	require.NoError(t, err)

	_, err = f.payments.OpenIntent(ctx, freeRes.ID, user)
	assert.ErrorIs(t, err, domain.ErrPaymentNotRequired)

	_, err = f.payments.OpenIntent(ctx, paidRes.ID, uuid.New())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.payments.OpenIntent(ctx, uuid.New(), user)
	assert.ErrorIs(t, err, domain.ErrReservationNotFound)

	_, err = f.ledger.Cancel(ctx, paidRes.ID, user)
	require.NoError(t, err)
	_, err = f.payments.OpenIntent(ctx, paidRes.ID, user)
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestOpenIntent_GatewayOutageLeavesReservationPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.addEvent(t, 10, 5000)
	user := uuid.New()
	res, err := f.ledger.Create(ctx, event.ID, user, "")
	require.NoError(t, err)

	outage := errors.New("503 service unavailable")
	f.gateway.On("CreateIntent", mock.Anything, mock.Anything).Return(nil, outage).Times(3)

	_, err = f.payments.OpenIntent(ctx, res.ID, user)
	assert.ErrorIs(t, err, domain.ErrGateway)

	stored, err := f.ledger.Get(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.PaymentStatus)
	assert.Nil(t, stored.PaymentIntentID)
}

func TestConfirmFromClient_Succeeded(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent(t, 10, 5000)
	res := f.reservePaid(t, event, "pi_client")

	f.gateway.On("RetrieveIntent", mock.Anything, "pi_client").
		Return(&ports.Intent{ID: "pi_client", Status: ports.IntentSucceeded}, nil).Once()

	updated, err := f.payments.ConfirmFromClient(context.Background(), "pi_client", res.UserID)

	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, domain.ReservationConfirmed, updated.Status)
}

func TestConfirmFromClient_NotSucceeded(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent(t, 10, 5000)
	res := f.reservePaid(t, event, "pi_processing")

	f.gateway.On("RetrieveIntent", mock.Anything, "pi_processing").
		Return(&ports.Intent{ID: "pi_processing", Status: ports.IntentPending}, nil).Once()

	_, err := f.payments.ConfirmFromClient(context.Background(), "pi_processing", res.UserID)

	assert.ErrorIs(t, err, domain.ErrPaymentNotSucceeded)
	stored, err := f.ledger.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPending, stored.PaymentStatus)
}

func TestConfirmFromClient_GatewayFailureRecordsFailedPayment(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent(t, 10, 5000)
	res := f.reservePaid(t, event, "pi_declined")

	f.gateway.On("RetrieveIntent", mock.Anything, "pi_declined").
		Return(&ports.Intent{ID: "pi_declined", Status: ports.IntentFailed}, nil).Once()

	_, err := f.payments.ConfirmFromClient(context.Background(), "pi_declined", res.UserID)

	assert.ErrorIs(t, err, domain.ErrPaymentNotSucceeded)
	stored, err := f.ledger.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, stored.PaymentStatus)
}

func TestConfirmFromClient_RejectsOtherUsers(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent(t, 10, 5000)
	f.reservePaid(t, event, "pi_someone_else")

	_, err := f.payments.ConfirmFromClient(context.Background(), "pi_someone_else", uuid.New())

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPaymentSweeper_SettlesStalePayments(t *testing.T) {
	f := newFixture(t)
	event := f.addEvent(t, 10, 5000)
	settledRes := f.reservePaid(t, event, "pi_settled")
	f.reservePaid(t, event, "pi_still_open")

	f.gateway.On("RetrieveIntent", mock.Anything, "pi_settled").
		Return(&ports.Intent{ID: "pi_settled", Status: ports.IntentSucceeded}, nil).Once()
	f.gateway.On("RetrieveIntent", mock.Anything, "pi_still_open").
		Return(&ports.Intent{ID: "pi_still_open", Status: ports.IntentPending}, nil).Once()

	sweeper := newSweeper(f)
	settled := sweeper.Sweep(context.Background())

	assert.Equal(t, 1, settled)
	stored, err := f.ledger.Get(context.Background(), settledRes.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, stored.PaymentStatus)
}
