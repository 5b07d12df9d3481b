package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

const waitlistColumns = `id, user_id, event_id, number_of_seats, created_at`

type WaitlistRepository struct {
	db *pgxpool.Pool
	l  logger.Logger
}

func NewWaitlistRepository(db *pgxpool.Pool, l logger.Logger) *WaitlistRepository {
	return &WaitlistRepository{db: db, l: l}
}

func (r *WaitlistRepository) Insert(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO waitlist (user_id, event_id, number_of_seats)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		entry.UserID, entry.EventID, entry.NumberOfSeats,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert waitlist entry: %w", err)
	}
	return entry, nil
}

// HeadTx locks and returns the oldest entry for the event. (created_at, id)
// ordering makes the queue position total even when timestamps collide.
func (r *WaitlistRepository) HeadTx(ctx context.Context, tx pgx.Tx, eventID int64) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry
	err := tx.QueryRow(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist
		 WHERE event_id = $1
		 ORDER BY created_at ASC, id ASC
		 LIMIT 1
		 FOR UPDATE`,
		eventID,
	).Scan(&entry.ID, &entry.UserID, &entry.EventID, &entry.NumberOfSeats, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrWaitlistEmpty
		}
		return nil, fmt.Errorf("read waitlist head: %w", err)
	}
	return &entry, nil
}

func (r *WaitlistRepository) DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM waitlist WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete waitlist entry: %w", err)
	}
	return nil
}

// ShrinkTx lowers the head entry's seat count after a partial grant. The
// entry keeps its created_at, so it stays at the front of the queue.
func (r *WaitlistRepository) ShrinkTx(ctx context.Context, tx pgx.Tx, id int64, remaining int) error {
	tag, err := tx.Exec(ctx,
		`UPDATE waitlist SET number_of_seats = $2 WHERE id = $1`,
		id, remaining,
	)
	if err != nil {
		return fmt.Errorf("shrink waitlist entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrWaitlistEmpty
	}
	return nil
}

func (r *WaitlistRepository) ListByEvent(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist WHERE event_id = $1 ORDER BY created_at ASC, id ASC`,
		eventID,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist for event: %w", err)
	}
	defer rows.Close()

	return collectWaitlist(rows)
}

func (r *WaitlistRepository) ListAll(ctx context.Context) ([]models.WaitlistEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+waitlistColumns+` FROM waitlist ORDER BY event_id ASC, created_at ASC, id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list waitlist: %w", err)
	}
	defer rows.Close()

	return collectWaitlist(rows)
}

func collectWaitlist(rows pgx.Rows) ([]models.WaitlistEntry, error) {
	var entries []models.WaitlistEntry
	for rows.Next() {
		var entry models.WaitlistEntry
		if err := rows.Scan(&entry.ID, &entry.UserID, &entry.EventID, &entry.NumberOfSeats, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan waitlist entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
