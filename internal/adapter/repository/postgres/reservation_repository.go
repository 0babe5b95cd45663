package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/srgjo27/scalable_rsvp/internal/core/domain"
)

const uniqueViolation = "23505"

const reservationColumns = `id, user_id, event_id, status, payment_status, payment_intent_id,
	amount, currency, notes, compensation, created_at, updated_at, cancelled_at`

type ReservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var r domain.Reservation
	var intentID sql.NullString
	var cancelledAt sql.NullTime

	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.EventID,
		&r.Status,
		&r.PaymentStatus,
		&intentID,
		&r.Amount,
		&r.Currency,
		&r.Notes,
		&r.Compensation,
		&r.CreatedAt,
		&r.UpdatedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	if intentID.Valid && intentID.String != "" {
		id := intentID.String
		r.PaymentIntentID = &id
	}

	if cancelledAt.Valid {
		t := cancelledAt.Time
		r.CancelledAt = &t
	}

	return &r, nil
}

func (r *ReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `
	INSERT INTO reservations (id, user_id, event_id, status, payment_status, payment_intent_id,
		amount, currency, notes, compensation, created_at, updated_at, cancelled_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.UserID, res.EventID, res.Status, res.PaymentStatus, res.PaymentIntentID,
		res.Amount, res.Currency, res.Notes, res.Compensation, res.CreatedAt, res.UpdatedAt, res.CancelledAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateReservation
		}

		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`

	return r.getOne(ctx, query, id)
}

func (r *ReservationRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE payment_intent_id = $1`

	return r.getOne(ctx, query, intentID)
}

func (r *ReservationRepository) FindActive(ctx context.Context, userID, eventID uuid.UUID) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM reservations
	WHERE user_id = $1 AND event_id = $2 AND status <> 'cancelled'
	`

	return r.getOne(ctx, query, userID, eventID)
}

func (r *ReservationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM reservations
	WHERE user_id = $1
	ORDER BY created_at DESC
	`

	return r.list(ctx, query, userID)
}

func (r *ReservationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM reservations
	WHERE event_id = $1
	ORDER BY created_at DESC
	`

	return r.list(ctx, query, eventID)
}

func (r *ReservationRepository) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Reservation, error) {
	query := `
	UPDATE reservations
	SET status = 'cancelled',
		compensation = CASE WHEN payment_status = 'paid' THEN 'required' ELSE compensation END,
		cancelled_at = $2,
		updated_at = $2
	WHERE id = $1 AND status <> 'cancelled'
	RETURNING ` + reservationColumns

	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id, at))
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to cancel reservation: %w", err)
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}

	return nil, domain.ErrAlreadyCancelled
}

func (r *ReservationRepository) RestoreCancelled(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
	UPDATE reservations
	SET status = CASE WHEN payment_status IN ('pending', 'failed') THEN 'pending' ELSE 'confirmed' END,
		compensation = CASE WHEN compensation = 'required' AND payment_status = 'paid' THEN 'none' ELSE compensation END,
		cancelled_at = NULL,
		updated_at = $2
	WHERE id = $1 AND status = 'cancelled'
	`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return domain.ErrDuplicateReservation
		}

		return fmt.Errorf("failed to restore reservation: %w", err)
	}

	return expectOneRow(result)
}

func (r *ReservationRepository) SetPaymentIntent(ctx context.Context, id uuid.UUID, intentID string, at time.Time) (*domain.Reservation, error) {
	query := `
	UPDATE reservations
	SET payment_intent_id = $2, updated_at = $3
	WHERE id = $1 AND payment_intent_id IS NULL
	RETURNING ` + reservationColumns

	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id, intentID, at))
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, domain.ErrIntentAlreadyLinked
		}

		return nil, fmt.Errorf("failed to store payment intent: %w", err)
	}

	// lost the race or already set: report what is stored
	return r.GetByID(ctx, id)
}

func (r *ReservationRepository) MarkPaymentSucceeded(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	query := `
	UPDATE reservations
	SET payment_status = 'paid', status = 'confirmed', updated_at = $2
	WHERE payment_intent_id = $1 AND payment_status = 'pending' AND status <> 'cancelled'
	RETURNING ` + reservationColumns

	return r.transition(ctx, query, intentID, at)
}

func (r *ReservationRepository) MarkPaymentFailed(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	query := `
	UPDATE reservations
	SET payment_status = 'failed', updated_at = $2
	WHERE payment_intent_id = $1 AND payment_status = 'pending'
	RETURNING ` + reservationColumns

	return r.transition(ctx, query, intentID, at)
}

func (r *ReservationRepository) MarkPaidAfterCancel(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	query := `
	UPDATE reservations
	SET payment_status = 'paid', compensation = 'required', updated_at = $2
	WHERE payment_intent_id = $1 AND payment_status = 'pending' AND status = 'cancelled'
	RETURNING ` + reservationColumns

	return r.transition(ctx, query, intentID, at)
}

func (r *ReservationRepository) MarkCapturedAfterFailure(ctx context.Context, intentID string, at time.Time) (*domain.Reservation, error) {
	query := `
	UPDATE reservations
	SET compensation = 'required', updated_at = $2
	WHERE payment_intent_id = $1 AND payment_status = 'failed' AND compensation = 'none'
	RETURNING ` + reservationColumns

	return r.transition(ctx, query, intentID, at)
}

func (r *ReservationRepository) MarkRefunded(ctx context.Context, id uuid.UUID, at time.Time) (*domain.Reservation, error) {
	query := `
	UPDATE reservations
	SET compensation = 'refunded', updated_at = $2
	WHERE id = $1 AND compensation = 'required'
	RETURNING ` + reservationColumns

	return r.transition(ctx, query, id, at)
}

func (r *ReservationRepository) ListPendingPayments(ctx context.Context, olderThan time.Time, limit int) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
	FROM reservations
	WHERE payment_status = 'pending' AND payment_intent_id IS NOT NULL AND updated_at < $1
	ORDER BY updated_at ASC
	LIMIT $2
	`

	return r.list(ctx, query, olderThan, limit)
}

func (r *ReservationRepository) transition(ctx context.Context, query string, key any, at time.Time) (*domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, key, at))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStateConflict
		}

		return nil, fmt.Errorf("failed to update reservation: %w", err)
	}

	return res, nil
}

func (r *ReservationRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReservationNotFound
		}

		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return res, nil
}

func (r *ReservationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}

		reservations = append(reservations, *res)
	}

	return reservations, rows.Err()
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrStateConflict
	}

	return nil
}
