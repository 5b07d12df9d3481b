package service

import (
	"context"
	"sync"
	"time"

	"github.com/VaibhavVermaa16/AtomicSeats/internal/metrics"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// Reconciler rebuilds the whole mirror from durable state, on a schedule
// and on demand whenever a best-effort cache write fails. The mirror is
// disposable, so the rebuild is flush-then-repopulate rather than a diff.
type Reconciler struct {
	l        logger.Logger
	events   EventStore
	bookings BookingStore
	waitlist WaitlistStore
	users    UserStore
	cache    CacheRepository
	interval time.Duration

	trigger chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewReconciler(
	l logger.Logger,
	events EventStore,
	bookings BookingStore,
	waitlist WaitlistStore,
	users UserStore,
	cache CacheRepository,
	interval time.Duration,
) *Reconciler {
	return &Reconciler{
		l:        l,
		events:   events,
		bookings: bookings,
		waitlist: waitlist,
		users:    users,
		cache:    cache,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
	}
}

// Trigger requests a rebuild without blocking. Requests arriving while one
// is already pending coalesce into a single pass.
func (r *Reconciler) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Reconciler) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		// Rebuild once at startup so a cold or stale mirror never serves
		// the first requests.
		if err := r.Rebuild(ctx); err != nil {
			r.l.Errorf(ctx, "service.Reconciler: startup rebuild: %v", err)
		}

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.stopCh:
				return
			case <-ticker.C:
			case <-r.trigger:
			}

			if err := r.Rebuild(ctx); err != nil {
				r.l.Errorf(ctx, "service.Reconciler: rebuild: %v", err)
			}
		}
	}()
}

func (r *Reconciler) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

// Rebuild flushes the mirror and repopulates it from the database. Closed
// waitlist flags live only in the mirror, so they are read out before the
// flush and written back after.
func (r *Reconciler) Rebuild(ctx context.Context) error {
	closedEvents, err := r.cache.ListClosedWaitlists(ctx)
	if err != nil {
		// Without the flags a closed waitlist would silently reopen.
		return err
	}

	if err := r.cache.Flush(ctx); err != nil {
		return err
	}

	events, err := r.events.List(ctx)
	if err != nil {
		return err
	}
	for i := range events {
		if err := r.cache.PutEvent(ctx, &events[i]); err != nil {
			return err
		}
	}

	users, err := r.users.List(ctx)
	if err != nil {
		return err
	}
	for i := range users {
		if err := r.cache.PutUser(ctx, &users[i]); err != nil {
			return err
		}
	}

	bookings, err := r.bookings.ListActive(ctx)
	if err != nil {
		return err
	}
	for i := range bookings {
		if err := r.cache.PutBooking(ctx, &bookings[i]); err != nil {
			return err
		}
	}

	// ListAll returns entries in queue order, so the mirrored lists come
	// out in the same order the allocator will serve them.
	entries, err := r.waitlist.ListAll(ctx)
	if err != nil {
		return err
	}
	for i := range entries {
		if err := r.cache.PushWaitlistEntry(ctx, &entries[i]); err != nil {
			return err
		}
	}

	for _, eventID := range closedEvents {
		if err := r.cache.SetWaitlistClosed(ctx, eventID, true); err != nil {
			return err
		}
	}

	metrics.CacheReconciliations.Inc()
	r.l.Infof(ctx, "service.Reconciler: rebuilt mirror with %d events, %d bookings, %d waitlist entries", len(events), len(bookings), len(entries))
	return nil
}
