package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
)

type userEvent struct {
	userID  uuid.UUID
	eventID uuid.UUID
}

// ReservationRepository mirrors the postgres ledger: the active index plays
// the partial unique index and every conditional update runs under one lock.
type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[uuid.UUID]*domain.Reservation
	active       map[userEvent]uuid.UUID
	byIntent     map[string]uuid.UUID
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		reservations: make(map[uuid.UUID]*domain.Reservation),
		active:       make(map[userEvent]uuid.UUID),
		byIntent:     make(map[string]uuid.UUID),
	}
}

func clone(r *domain.Reservation) *domain.Reservation {
	c := *r
	if r.PaymentIntentID != nil {
		id := *r.PaymentIntentID
		c.PaymentIntentID = &id
	}
	if r.CancelledAt != nil {
		t := *r.CancelledAt
		c.CancelledAt = &t
	}

	return &c
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := userEvent{res.UserID, res.EventID}
	if res.IsActive() {
		if _, exists := r.active[key]; exists {
			return domain.ErrDuplicateReservation
		}
	}

	stored := clone(res)
	r.reservations[res.ID] = stored
	if stored.IsActive() {
		r.active[key] = stored.ID
	}
	if stored.HasIntent() {
		r.byIntent[*stored.PaymentIntentID] = stored.ID
	}

	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}

	return clone(res), nil
}

func (r *ReservationRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.lookupIntent(intentID)
	if !ok {
		return nil, domain.ErrReservationNotFound
	}

	return clone(res), nil
}

func (r *ReservationRepository) FindActive(ctx context.Context, userID, eventID uuid.UUID) (*domain.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.active[userEvent{userID, eventID}]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}

	return clone(r.reservations[id]), nil
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	return r.filter(func(res *domain.Reservation) bool { return res.UserID == userID }), nil
}

func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Reservation, error) {
	return r.filter(func(res *domain.Reservation) bool { return res.EventID == eventID }), nil
}

func (r *ReservationRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}

	if !res.IsActive() {
		return nil, domain.ErrAlreadyCancelled
	}

	res.Status = domain.ReservationCancelled
	if res.PaymentStatus == domain.PaymentPaid {
		res.Compensation = domain.CompensationRequired
	}
	cancelledAt := at
	res.CancelledAt = &cancelledAt
	res.UpdatedAt = at
	delete(r.active, userEvent{res.UserID, res.EventID})

	return clone(res), nil
}

func (r *ReservationRepository) RestoreCancelled(ctx context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok || res.IsActive() {
		return domain.ErrStateConflict
	}

	key := userEvent{res.UserID, res.EventID}
	if _, exists := r.active[key]; exists {
		return domain.ErrDuplicateReservation
	}

	if res.PaymentStatus == domain.PaymentPending || res.PaymentStatus == domain.PaymentFailed {
		res.Status = domain.ReservationPending
	} else {
		res.Status = domain.ReservationConfirmed
	}
	if res.Compensation == domain.CompensationRequired && res.PaymentStatus == domain.PaymentPaid {
		res.Compensation = domain.CompensationNone
	}
	res.CancelledAt = nil
	res.UpdatedAt = at
	r.active[key] = res.ID

	return nil
}

func (r *ReservationRepository) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string, at time.Time) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, domain.ErrReservationNotFound
	}

	if owner, linked := r.byIntent[intentID]; linked && owner != id {
		return nil, domain.ErrIntentAlreadyLinked
	}

	if !res.HasIntent() {
		stored := intentID
		res.PaymentIntentID = &stored
		res.UpdatedAt = at
		r.byIntent[intentID] = res.ID
	}

	return clone(res), nil
}

func (r *ReservationRepository) MarkPaymentSucceeded(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	return r.transition(intentID, func(res *domain.Reservation) bool {
		if res.PaymentStatus != domain.PaymentPending || !res.IsActive() {
			return false
		}
		res.PaymentStatus = domain.PaymentPaid
		res.Status = domain.ReservationConfirmed
		res.UpdatedAt = at
		return true
	})
}

func (r *ReservationRepository) MarkPaymentFailed(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	return r.transition(intentID, func(res *domain.Reservation) bool {
		if res.PaymentStatus != domain.PaymentPending {
			return false
		}
		res.PaymentStatus = domain.PaymentFailed
		res.UpdatedAt = at
		return true
	})
}

func (r *ReservationRepository) MarkPaidAfterCancel(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	return r.transition(intentID, func(res *domain.Reservation) bool {
		if res.PaymentStatus != domain.PaymentPending || res.IsActive() {
			return false
		}
		res.PaymentStatus = domain.PaymentPaid
		res.Compensation = domain.CompensationRequired
		res.UpdatedAt = at
		return true
	})
}

func (r *ReservationRepository) MarkCapturedAfterFailure(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	return r.transition(intentID, func(res *domain.Reservation) bool {
		if res.PaymentStatus != domain.PaymentFailed || res.Compensation != domain.CompensationNone {
			return false
		}
		res.Compensation = domain.CompensationRequired
		res.UpdatedAt = at
		return true
	})
}

func (r *ReservationRepository) MarkRefunded(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[id]
	if !ok || res.Compensation != domain.CompensationRequired {
		return nil, domain.ErrStateConflict
	}

	res.Compensation = domain.CompensationRefunded
	res.UpdatedAt = at

	return clone(res), nil
}

func (r *ReservationRepository) ListPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]domain.Reservation, error) {
	pending := r.filter(func(res *domain.Reservation) bool {
		return res.PaymentStatus == domain.PaymentPending && res.HasIntent() && res.UpdatedAt.Before(olderThan)
	})

	sort.Slice(pending, func(i, j int) bool {
		return pending[i].UpdatedAt.Before(pending[j].UpdatedAt)
	})

	if limit > 0 && len(pending) > limit {
		pending = pending[:limit]
	}

	return pending, nil
}

func (r *ReservationRepository) lookupIntent(intentID string) (*domain.Reservation, bool) {
	id, ok := r.byIntent[intentID]
	if !ok {
		return nil, false
	}

	res, ok := r.reservations[id]
	return res, ok
}

func (r *ReservationRepository) transition(intentID string, apply func(*domain.Reservation) bool) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.lookupIntent(intentID)
	if !ok || !apply(res) {
		return nil, domain.ErrStateConflict
	}

	return clone(res), nil
}

// filter returns matches newest first.
func (r *ReservationRepository) filter(match func(*domain.Reservation) bool) []domain.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Reservation
	for _, res := range r.reservations {
		if match(res) {
			out = append(out, *clone(res))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	return out
}
