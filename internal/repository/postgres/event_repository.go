package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

const eventColumns = `id, name, description, host_id, venue, starts_at, ends_at, capacity, reserved_seats, price::text`

type EventRepository struct {
	db *pgxpool.Pool
	l  logger.Logger
}

func NewEventRepository(db *pgxpool.Pool, l logger.Logger) *EventRepository {
	return &EventRepository{db: db, l: l}
}

// LockForUpdate reads the event row under an exclusive row lock. Every
// concurrent transaction that needs the same row blocks here until this
// transaction commits or rolls back, which serialises capacity decisions.
func (r *EventRepository) LockForUpdate(ctx context.Context, tx pgx.Tx, eventID int64) (*models.Event, error) {
	row := tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`,
		eventID,
	)

	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("lock event row: %w", err)
	}
	return ev, nil
}

func (r *EventRepository) AddReservedSeats(ctx context.Context, tx pgx.Tx, eventID int64, delta int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE events SET reserved_seats = reserved_seats + $2 WHERE id = $1`,
		eventID, delta,
	)
	if err != nil {
		return fmt.Errorf("add reserved seats: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) SetCapacity(ctx context.Context, tx pgx.Tx, eventID int64, capacity int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE events SET capacity = $2 WHERE id = $1`,
		eventID, capacity,
	)
	if err != nil {
		return fmt.Errorf("set capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) Create(ctx context.Context, ev *models.Event) (*models.Event, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO events (name, description, host_id, venue, starts_at, ends_at, capacity, reserved_seats, price)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)
		 RETURNING id`,
		ev.Name, ev.Description, ev.HostID, ev.Venue, ev.StartsAt, ev.EndsAt, ev.Capacity, ev.Price.String(),
	).Scan(&ev.ID)
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}
	ev.ReservedSeats = 0
	return ev, nil
}

// Delete removes the event; bookings and waitlist rows cascade.
func (r *EventRepository) Delete(ctx context.Context, eventID int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrEventNotFound
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`,
		eventID,
	)

	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return ev, nil
}

func (r *EventRepository) List(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *ev)
	}
	return events, rows.Err()
}

func scanEvent(row pgx.Row) (*models.Event, error) {
	var (
		ev       models.Event
		priceStr string
	)
	if err := row.Scan(
		&ev.ID, &ev.Name, &ev.Description, &ev.HostID, &ev.Venue,
		&ev.StartsAt, &ev.EndsAt, &ev.Capacity, &ev.ReservedSeats, &priceStr,
	); err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", priceStr, err)
	}
	ev.Price = price

	return &ev, nil
}
