package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/metrics"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
)

// ProcessWaitlistTrigger runs one allocation pass for the event named in the
// trigger. Triggers are not idempotency-guarded: a pass over an event with
// nothing to grant is a harmless no-op.
func (s *implReservationService) ProcessWaitlistTrigger(ctx context.Context, trg kafka.WaitlistAllocationTrigger) error {
	result, err := s.allocate(ctx, trg.EventID)
	if err != nil {
		s.l.Errorf(ctx, "service.Reservation.ProcessWaitlistTrigger: event %d: %v", trg.EventID, err)
		s.reconciler.Trigger()
		return err
	}
	if result == nil || result.SeatsGranted == 0 {
		return nil
	}

	metrics.WaitlistSeatsAllocated.Add(float64(result.SeatsGranted))

	if err := s.cache.SetEventReservedSeats(ctx, result.EventID, result.ReservedSeats); err != nil {
		s.l.Errorf(ctx, "service.Reservation.ProcessWaitlistTrigger: mirror counter for event %d: %v", result.EventID, err)
		s.reconciler.Trigger()
	}
	for i := range result.Bookings {
		if err := s.cache.PutBooking(ctx, &result.Bookings[i]); err != nil {
			s.l.Errorf(ctx, "service.Reservation.ProcessWaitlistTrigger: mirror booking %d: %v", result.Bookings[i].ID, err)
			s.reconciler.Trigger()
			break
		}
	}
	s.refreshWaitlistMirror(ctx, result.EventID)

	for _, alloc := range result.Allocations {
		cost := alloc.TotalCost
		s.notify(ctx, kafka.NotificationWaitlistConfirmed, alloc.UserEmail, alloc.UserID, result.EventID, alloc.NumberOfSeats, &cost)
	}
	return nil
}

// allocate drains the waitlist head-first while seats remain. A head larger
// than the remaining availability is granted partially and shrunk in place,
// keeping its queue position; nobody behind it is considered. All grants
// commit in one transaction under the event row lock.
func (s *implReservationService) allocate(ctx context.Context, eventID int64) (*AllocationResult, error) {
	result := &AllocationResult{EventID: eventID}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		ev, err := s.events.LockForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}

		available := ev.Available()
		if available < 0 {
			return apperrors.ErrInvariantViolation
		}
		result.ReservedSeats = ev.ReservedSeats

		for available > 0 {
			head, err := s.waitlist.HeadTx(ctx, tx, eventID)
			if err != nil {
				if errors.Is(err, apperrors.ErrWaitlistEmpty) {
					break
				}
				return err
			}

			seats := head.NumberOfSeats
			partial := seats > available
			if partial {
				seats = available
				if err := s.waitlist.ShrinkTx(ctx, tx, head.ID, head.NumberOfSeats-seats); err != nil {
					return err
				}
			} else {
				if err := s.waitlist.DeleteTx(ctx, tx, head.ID); err != nil {
					return err
				}
			}

			cost := ev.Price.Mul(decimal.NewFromInt(int64(seats)))
			booking, err := s.bookings.InsertTx(ctx, tx, &models.Booking{
				UserID:        head.UserID,
				EventID:       eventID,
				NumberOfSeats: seats,
				Cost:          cost,
			})
			if err != nil {
				return err
			}

			result.Bookings = append(result.Bookings, *booking)
			result.Allocations = append(result.Allocations, Allocation{
				UserID:        head.UserID,
				UserEmail:     s.lookupEmail(ctx, head.UserID),
				NumberOfSeats: seats,
				TotalCost:     cost,
				Partial:       partial,
			})
			result.SeatsGranted += seats
			available -= seats
		}

		if result.SeatsGranted > 0 {
			if err := s.events.AddReservedSeats(ctx, tx, eventID, result.SeatsGranted); err != nil {
				return err
			}
			result.ReservedSeats = ev.ReservedSeats + result.SeatsGranted
		}
		return nil
	})
	if err != nil {
		// A deleted event leaves dangling triggers behind; swallow them.
		if errors.Is(err, apperrors.ErrEventNotFound) {
			s.l.Warnf(ctx, "service.Reservation.allocate: event %d gone, trigger dropped", eventID)
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}

// refreshWaitlistMirror rewrites the mirrored queue from durable state so
// granted entries drop out of it. Best-effort like every mirror write.
func (s *implReservationService) refreshWaitlistMirror(ctx context.Context, eventID int64) {
	entries, err := s.waitlist.ListByEvent(ctx, eventID)
	if err != nil {
		s.l.Errorf(ctx, "service.Reservation.refreshWaitlistMirror: list event %d: %v", eventID, err)
		s.reconciler.Trigger()
		return
	}
	if err := s.cache.ReplaceWaitlist(ctx, eventID, entries); err != nil {
		s.l.Errorf(ctx, "service.Reservation.refreshWaitlistMirror: event %d: %v", eventID, err)
		s.reconciler.Trigger()
	}
}

func (s *implReservationService) lookupEmail(ctx context.Context, userID int64) string {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		s.l.Warnf(ctx, "service.Reservation.lookupEmail: user %d: %v", userID, err)
		return ""
	}
	return u.Email
}
