package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/adapter/repository/memory"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports"
	"github.com/srgjo27/scalable_rsvp/internal/core/ports/mocks"
	"github.com/srgjo27/scalable_rsvp/internal/core/services"
	"github.com/srgjo27/scalable_rsvp/internal/platform/retry"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	events       *memory.EventRepository
	reservations ports.ReservationRepository
	gateway      *mocks.PaymentGateway
	publisher    *mocks.CompensationPublisher
	gate         *services.CapacityGate
	ledger       *services.ReservationService
	payments     *services.PaymentService
	reconciler   *services.Reconciler
	compensation *services.CompensationService
}

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:      2,
		AttemptTimeout:  time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		Multiplier:      2,
	}
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	events       ports.EventRepository
	reservations ports.ReservationRepository
}

func withEvents(wrap func(ports.EventRepository) ports.EventRepository) fixtureOption {
	return func(d *fixtureDeps) { d.events = wrap(d.events) }
}

func withReservations(wrap func(ports.ReservationRepository) ports.ReservationRepository) fixtureOption {
	return func(d *fixtureDeps) { d.reservations = wrap(d.reservations) }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	log := zap.NewNop()
	events := memory.NewEventRepository()
	deps := &fixtureDeps{
		events:       events,
		reservations: memory.NewReservationRepository(),
	}
	for _, opt := range opts {
		opt(deps)
	}

	gateway := mocks.NewPaymentGateway(t)
	publisher := mocks.NewCompensationPublisher(t)

	gate := services.NewCapacityGate(deps.events, deps.reservations, log)
	compensation := services.NewCompensationService(deps.reservations, gateway, publisher, fastRetry(), log)
	reconciler := services.NewReconciler(deps.reservations, compensation, log)

	return &fixture{
		events:       events,
		reservations: deps.reservations,
		gateway:      gateway,
		publisher:    publisher,
		gate:         gate,
		ledger:       services.NewReservationService(deps.events, deps.reservations, gate, gateway, compensation, fastRetry(), log),
		payments:     services.NewPaymentService(deps.events, deps.reservations, gateway, reconciler, fastRetry(), log),
		reconciler:   reconciler,
		compensation: compensation,
	}
}

func (f *fixture) addEvent(t *testing.T, capacity int, price int64) *domain.Event {
	t.Helper()

	event := &domain.Event{
		ID:           uuid.New(),
		Title:        "Go meetup",
		MaxAttendees: capacity,
		Price:        price,
		Currency:     "usd",
		IsPaid:       price > 0,
	}
	require.NoError(t, f.events.Create(context.Background(), event))

	return event
}

func (f *fixture) attendees(t *testing.T, eventID uuid.UUID) int {
	t.Helper()

	event, err := f.events.GetByID(context.Background(), eventID)
	require.NoError(t, err)

	return event.CurrentAttendees
}

// reservePaid creates a paid reservation with an attached intent.
func (f *fixture) reservePaid(t *testing.T, event *domain.Event, intentID string) *domain.Reservation {
	t.Helper()
	ctx := context.Background()

	res, err := f.ledger.Create(ctx, event.ID, uuid.New(), "")
	require.NoError(t, err)

	stored, err := f.reservations.SetPaymentIntent(ctx, res.ID, intentID, time.Now().UTC())
	require.NoError(t, err)

	return stored
}

// failingEvents fails every decrement.
type failingEvents struct {
	ports.EventRepository
	err error
}

func (f *failingEvents) DecrementAttendees(ctx context.Context, eventID uuid.UUID) (bool, error) {
	return false, f.err
}

// failingLedger fails every insert.
type failingLedger struct {
	ports.ReservationRepository
	err error
}

func (f *failingLedger) Create(ctx context.Context, r *domain.Reservation) error {
	return f.err
}
