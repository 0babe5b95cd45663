package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
)

// EventRepository keeps events in process memory. Counter updates happen
// under the write lock, which makes each increment a single atomic
// check-and-set.
type EventRepository struct {
	mu     sync.RWMutex
	events map[uuid.UUID]*domain.Event
}

func NewEventRepository() *EventRepository {
	return &EventRepository{events: make(map[uuid.UUID]*domain.Event)}
}

func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := *event
	r.events[event.ID] = &e

	return nil
}

func (r *EventRepository) GetByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	event, ok := r.events[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}

	e := *event
	return &e, nil
}

func (r *EventRepository) IncrementAttendees(ctx context.Context, eventID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return domain.ErrEventNotFound
	}

	if !event.HasCapacity() {
		return domain.ErrCapacityExceeded
	}

	event.CurrentAttendees++
	return nil
}

func (r *EventRepository) DecrementAttendees(ctx context.Context, eventID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	event, ok := r.events[eventID]
	if !ok {
		return false, domain.ErrEventNotFound
	}

	if event.CurrentAttendees <= 0 {
		return false, nil
	}

	event.CurrentAttendees--
	return true, nil
}
