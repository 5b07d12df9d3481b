package service

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
)

// TxManager runs a function inside a single database transaction. The
// callback either commits (nil return) or rolls back (error return) as a
// whole; repositories expose *Tx methods that take the open transaction.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error
}

// EventStore is the authoritative capacity state. LockForUpdate acquires a
// row-level exclusive lock that serialises all seat-count decisions for one
// event until the surrounding transaction resolves.
type EventStore interface {
	LockForUpdate(ctx context.Context, tx pgx.Tx, eventID int64) (*models.Event, error)
	AddReservedSeats(ctx context.Context, tx pgx.Tx, eventID int64, delta int) error
	SetCapacity(ctx context.Context, tx pgx.Tx, eventID int64, capacity int) error

	Create(ctx context.Context, ev *models.Event) (*models.Event, error)
	Delete(ctx context.Context, eventID int64) error
	Get(ctx context.Context, eventID int64) (*models.Event, error)
	List(ctx context.Context) ([]models.Event, error)
}

type BookingStore interface {
	InsertTx(ctx context.Context, tx pgx.Tx, b *models.Booking) (*models.Booking, error)
	// CancelTx soft-deletes matching confirmed bookings and returns them.
	// bookingID narrows to one booking; cancelAll takes every confirmed
	// booking the user holds for the event.
	CancelTx(ctx context.Context, tx pgx.Tx, eventID, userID int64, bookingID *int64, cancelAll bool) ([]models.Booking, error)

	ListByUser(ctx context.Context, userID int64) ([]models.Booking, error)
	ListActive(ctx context.Context) ([]models.Booking, error)
}

type WaitlistStore interface {
	Insert(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// HeadTx returns the oldest entry by (created_at, id) for the event, or
	// errors.ErrWaitlistEmpty.
	HeadTx(ctx context.Context, tx pgx.Tx, eventID int64) (*models.WaitlistEntry, error)
	DeleteTx(ctx context.Context, tx pgx.Tx, id int64) error
	ShrinkTx(ctx context.Context, tx pgx.Tx, id int64, remaining int) error

	ListByEvent(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error)
	ListAll(ctx context.Context) ([]models.WaitlistEntry, error)
}

type UserStore interface {
	Get(ctx context.Context, userID int64) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
}

// CacheRepository is the Fast Mirror. It is never consulted to make a seat
// accounting decision; every method is a read optimisation or a best-effort
// write whose failure routes to full reconciliation.
type CacheRepository interface {
	PutEvent(ctx context.Context, ev *models.Event) error
	SetEventReservedSeats(ctx context.Context, eventID int64, reserved int) error
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	DeleteEvent(ctx context.Context, eventID int64) error

	PutBooking(ctx context.Context, b *models.Booking) error
	PutUser(ctx context.Context, u *models.User) error
	PushWaitlistEntry(ctx context.Context, entry *models.WaitlistEntry) error
	// ReplaceWaitlist rewrites one event's mirrored queue, in queue order.
	ReplaceWaitlist(ctx context.Context, eventID int64, entries []models.WaitlistEntry) error

	IsWaitlistClosed(ctx context.Context, eventID int64) (bool, error)
	SetWaitlistClosed(ctx context.Context, eventID int64, closed bool) error
	ListClosedWaitlists(ctx context.Context) ([]int64, error)

	Flush(ctx context.Context) error
}

// IdempotencyStore consumes message ids. MarkProcessed returns true only
// the first time a message id is seen within the TTL window.
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, messageID string, ttl time.Duration) (bool, error)
}

// ReconcileTrigger requests an asynchronous full cache rebuild. Trigger
// never blocks; coalescing concurrent requests is the implementation's job.
type ReconcileTrigger interface {
	Trigger()
}
