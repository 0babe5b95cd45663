package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetByID(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	query := `
	SELECT id, title, max_attendees, current_attendees, price, currency, is_paid
	FROM events
	WHERE id = $1
	`

	var event domain.Event
	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.ID,
		&event.Title,
		&event.MaxAttendees,
		&event.CurrentAttendees,
		&event.Price,
		&event.Currency,
		&event.IsPaid,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}

		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	return &event, nil
}

// IncrementAttendees is the capacity check and the increment in one
// statement: the row lock taken by UPDATE serializes concurrent callers on
// the same event, and the WHERE clause is re-evaluated after the lock.
func (r *EventRepository) IncrementAttendees(ctx context.Context, eventID uuid.UUID) error {
	query := `
	UPDATE events
	SET current_attendees = current_attendees + 1
	WHERE id = $1 AND current_attendees < max_attendees
	`

	result, err := r.db.ExecContext(ctx, query, eventID)
	if err != nil {
		return fmt.Errorf("failed to increment attendees: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return r.rejection(ctx, eventID)
	}

	return nil
}

func (r *EventRepository) DecrementAttendees(ctx context.Context, eventID uuid.UUID) (bool, error) {
	query := `
	UPDATE events
	SET current_attendees = current_attendees - 1
	WHERE id = $1 AND current_attendees > 0
	`

	result, err := r.db.ExecContext(ctx, query, eventID)
	if err != nil {
		return false, fmt.Errorf("failed to decrement attendees: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists); err != nil {
			return false, fmt.Errorf("failed to check event: %w", err)
		}
		if !exists {
			return false, domain.ErrEventNotFound
		}

		return false, nil
	}

	return true, nil
}

// Create inserts an event. The catalog owns events; this exists for seeding
// and integration tests.
func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
	INSERT INTO events (id, title, max_attendees, current_attendees, price, currency, is_paid)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.Title, event.MaxAttendees, event.CurrentAttendees, event.Price, event.Currency, event.IsPaid)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}

	return nil
}

func (r *EventRepository) rejection(ctx context.Context, eventID uuid.UUID) error {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}

	if !exists {
		return domain.ErrEventNotFound
	}

	return domain.ErrCapacityExceeded
}
