package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

const bookingColumns = `id, user_id, event_id, number_of_seats, cost::text, status, created_at, cancelled_at`

type BookingRepository struct {
	db *pgxpool.Pool
	l  logger.Logger
}

func NewBookingRepository(db *pgxpool.Pool, l logger.Logger) *BookingRepository {
	return &BookingRepository{db: db, l: l}
}

// InsertTx writes a confirmed booking inside the caller's transaction so the
// booking row and the seat counter move together or not at all.
func (r *BookingRepository) InsertTx(ctx context.Context, tx pgx.Tx, b *models.Booking) (*models.Booking, error) {
	err := tx.QueryRow(ctx,
		`INSERT INTO booking (user_id, event_id, number_of_seats, cost, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at`,
		b.UserID, b.EventID, b.NumberOfSeats, b.Cost.String(), models.BookingStatusConfirmed,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert booking: %w", err)
	}
	b.Status = models.BookingStatusConfirmed
	return b, nil
}

// CancelTx soft-deletes confirmed bookings and returns the affected rows.
// Rows already cancelled never match, so a repeated cancel is a no-op.
func (r *BookingRepository) CancelTx(ctx context.Context, tx pgx.Tx, eventID, userID int64, bookingID *int64, cancelAll bool) ([]models.Booking, error) {
	query := `UPDATE booking
		 SET status = $1, cancelled_at = now()
		 WHERE event_id = $2 AND user_id = $3 AND status = $4`
	args := []any{models.BookingStatusCancelled, eventID, userID, models.BookingStatusConfirmed}

	if bookingID != nil {
		query += ` AND id = $5`
		args = append(args, *bookingID)
	} else if !cancelAll {
		// Neither a specific booking nor cancel-all: take the most recent one.
		query += ` AND id = (SELECT id FROM booking
			WHERE event_id = $2 AND user_id = $3 AND status = $4
			ORDER BY created_at DESC, id DESC LIMIT 1)`
	}

	query += ` RETURNING ` + bookingColumns

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cancel bookings: %w", err)
	}
	defer rows.Close()

	cancelled, err := collectBookings(rows)
	if err != nil {
		return nil, err
	}
	if len(cancelled) == 0 {
		return nil, apperrors.ErrBookingNotFound
	}
	return cancelled, nil
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]models.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookingColumns+` FROM booking WHERE user_id = $1 ORDER BY created_at DESC, id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list bookings by user: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

// ListActive returns every confirmed booking, ordered for a deterministic
// cache rebuild.
func (r *BookingRepository) ListActive(ctx context.Context) ([]models.Booking, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+bookingColumns+` FROM booking WHERE status = $1 ORDER BY id ASC`,
		models.BookingStatusConfirmed,
	)
	if err != nil {
		return nil, fmt.Errorf("list active bookings: %w", err)
	}
	defer rows.Close()

	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	var bookings []models.Booking
	for rows.Next() {
		var (
			b       models.Booking
			costStr string
		)
		if err := rows.Scan(
			&b.ID, &b.UserID, &b.EventID, &b.NumberOfSeats,
			&costStr, &b.Status, &b.CreatedAt, &b.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		cost, err := decimal.NewFromString(costStr)
		if err != nil {
			return nil, fmt.Errorf("parse cost %q: %w", costStr, err)
		}
		b.Cost = cost
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}
