package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka/producer"
	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/metrics"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// ReservationService is the single writer of seat state. Queue messages for
// one event arrive in order on one partition, and every capacity decision
// happens under the event row lock, so availability can never be oversold.
type ReservationService interface {
	ProcessBookingRequest(ctx context.Context, req kafka.BookingRequest) error
	ProcessWaitlistTrigger(ctx context.Context, trg kafka.WaitlistAllocationTrigger) error

	CancelBooking(ctx context.Context, userID int64, in CancelBookingInput) (*CancelBookingOutput, error)
	UpdateCapacity(ctx context.Context, eventID int64, capacity int) (*models.Event, error)
	SetWaitlistClosed(ctx context.Context, eventID int64, closed bool) error
}

type implReservationService struct {
	l          logger.Logger
	tx         TxManager
	events     EventStore
	bookings   BookingStore
	waitlist   WaitlistStore
	users      UserStore
	cache      CacheRepository
	idem       IdempotencyStore
	producer   producer.Producer
	reconciler ReconcileTrigger

	idempotencyTTL time.Duration
}

func NewReservationService(
	l logger.Logger,
	tx TxManager,
	events EventStore,
	bookings BookingStore,
	waitlist WaitlistStore,
	users UserStore,
	cache CacheRepository,
	idem IdempotencyStore,
	prod producer.Producer,
	reconciler ReconcileTrigger,
	idempotencyTTL time.Duration,
) ReservationService {
	return &implReservationService{
		l:              l,
		tx:             tx,
		events:         events,
		bookings:       bookings,
		waitlist:       waitlist,
		users:          users,
		cache:          cache,
		idem:           idem,
		producer:       prod,
		reconciler:     reconciler,
		idempotencyTTL: idempotencyTTL,
	}
}

// ProcessBookingRequest settles one admitted request: consume the message
// id, decide under the row lock, then sync the mirror and notify. Returning
// an error makes the consumer retry the message.
func (s *implReservationService) ProcessBookingRequest(ctx context.Context, req kafka.BookingRequest) error {
	first, err := s.idem.MarkProcessed(ctx, req.MessageID, s.idempotencyTTL)
	if err != nil {
		s.l.Errorf(ctx, "service.Reservation.ProcessBookingRequest: idempotency check for %s: %v", req.MessageID, err)
		return err
	}
	if !first {
		metrics.DuplicateMessages.Inc()
		s.l.Infof(ctx, "service.Reservation.ProcessBookingRequest: duplicate message %s skipped", req.MessageID)
		return nil
	}

	var out reserveOutcome
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		ev, err := s.events.LockForUpdate(ctx, tx, req.EventID)
		if err != nil {
			return err
		}

		available := ev.Available()
		if available < 0 {
			return apperrors.ErrInvariantViolation
		}

		if available == 0 {
			out.status = reserveSoldOut
			out.seatsRemaining = req.NumberOfSeats
			out.reservedSeats = ev.ReservedSeats
			return nil
		}

		seats := req.NumberOfSeats
		out.status = reserveConfirmed
		if seats > available {
			seats = available
			out.status = reservePartial
			out.seatsRemaining = req.NumberOfSeats - seats
		}
		out.seatsConfirmed = seats
		out.reservedSeats = ev.ReservedSeats + seats

		if err := s.events.AddReservedSeats(ctx, tx, ev.ID, seats); err != nil {
			return err
		}

		booking, err := s.bookings.InsertTx(ctx, tx, &models.Booking{
			UserID:        req.UserID,
			EventID:       ev.ID,
			NumberOfSeats: seats,
			Cost:          ev.Price.Mul(decimal.NewFromInt(int64(seats))),
		})
		if err != nil {
			return err
		}
		out.booking = booking
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrEventNotFound):
		metrics.BookingsRejected.Inc()
		s.l.Warnf(ctx, "service.Reservation.ProcessBookingRequest: event %d gone, dropping message %s", req.EventID, req.MessageID)
		s.notify(ctx, kafka.NotificationBookingFailed, req.UserEmail, req.UserID, req.EventID, req.NumberOfSeats, nil)
		return nil
	case errors.Is(err, apperrors.ErrInvariantViolation):
		// The message id is already consumed, so a retry would be skipped.
		// Hand the mess to reconciliation instead of failing the consumer.
		metrics.BookingsRejected.Inc()
		s.l.Errorf(ctx, "service.Reservation.ProcessBookingRequest: event %d: %v", req.EventID, err)
		s.reconciler.Trigger()
		s.notify(ctx, kafka.NotificationBookingFailed, req.UserEmail, req.UserID, req.EventID, req.NumberOfSeats, nil)
		return nil
	default:
		// The transaction rolled back but the message id is consumed, so
		// redelivery would be swallowed. Surface the failure to the user
		// and leave repair to reconciliation.
		s.l.Errorf(ctx, "service.Reservation.ProcessBookingRequest: %v", err)
		s.reconciler.Trigger()
		s.notify(ctx, kafka.NotificationBookingFailed, req.UserEmail, req.UserID, req.EventID, req.NumberOfSeats, nil)
		return nil
	}

	switch out.status {
	case reserveConfirmed:
		metrics.BookingsConfirmed.Inc()
		s.syncAfterReserve(ctx, req.EventID, out)
		cost := out.booking.Cost
		s.notify(ctx, kafka.NotificationBookingConfirmed, req.UserEmail, req.UserID, req.EventID, out.seatsConfirmed, &cost)

	case reservePartial:
		metrics.BookingsPartial.Inc()
		s.syncAfterReserve(ctx, req.EventID, out)
		cost := out.booking.Cost
		s.notify(ctx, kafka.NotificationBookingConfirmed, req.UserEmail, req.UserID, req.EventID, out.seatsConfirmed, &cost)
		s.routeToWaitlist(ctx, req, out.seatsRemaining)

	case reserveSoldOut:
		s.routeToWaitlist(ctx, req, out.seatsRemaining)
	}

	return nil
}

// syncAfterReserve pushes the committed counter and booking into the mirror.
// Failures degrade reads, not correctness, so they route to reconciliation.
func (s *implReservationService) syncAfterReserve(ctx context.Context, eventID int64, out reserveOutcome) {
	if err := s.cache.SetEventReservedSeats(ctx, eventID, out.reservedSeats); err != nil {
		s.l.Errorf(ctx, "service.Reservation.syncAfterReserve: mirror counter for event %d: %v", eventID, err)
		s.reconciler.Trigger()
		return
	}
	if out.booking != nil {
		if err := s.cache.PutBooking(ctx, out.booking); err != nil {
			s.l.Errorf(ctx, "service.Reservation.syncAfterReserve: mirror booking %d: %v", out.booking.ID, err)
			s.reconciler.Trigger()
		}
	}
}

// routeToWaitlist handles the unseated remainder of a request. The mirror
// flag decides open/closed; when the mirror cannot answer, the hint captured
// at admission time stands in.
func (s *implReservationService) routeToWaitlist(ctx context.Context, req kafka.BookingRequest, seats int) {
	closed, err := s.cache.IsWaitlistClosed(ctx, req.EventID)
	if err != nil {
		s.l.Warnf(ctx, "service.Reservation.routeToWaitlist: closed flag for event %d: %v, using admission hint", req.EventID, err)
		closed = req.WaitlistClosedHint
	}

	if closed {
		metrics.BookingsRejected.Inc()
		s.notify(ctx, kafka.NotificationWaitlistClosed, req.UserEmail, req.UserID, req.EventID, seats, nil)
		return
	}

	entry, err := s.waitlist.Insert(ctx, &models.WaitlistEntry{
		UserID:        req.UserID,
		EventID:       req.EventID,
		NumberOfSeats: seats,
	})
	if err != nil {
		s.l.Errorf(ctx, "service.Reservation.routeToWaitlist: %v", err)
		s.reconciler.Trigger()
		return
	}
	metrics.BookingsWaitlisted.Inc()

	if err := s.cache.PushWaitlistEntry(ctx, entry); err != nil {
		s.l.Errorf(ctx, "service.Reservation.routeToWaitlist: mirror entry %d: %v", entry.ID, err)
		s.reconciler.Trigger()
	}

	s.notify(ctx, kafka.NotificationWaitlisted, req.UserEmail, req.UserID, req.EventID, seats, nil)
}

// CancelBooking releases seats and schedules an allocation pass for them.
func (s *implReservationService) CancelBooking(ctx context.Context, userID int64, in CancelBookingInput) (*CancelBookingOutput, error) {
	var out CancelBookingOutput
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		ev, err := s.events.LockForUpdate(ctx, tx, in.EventID)
		if err != nil {
			return err
		}

		cancelled, err := s.bookings.CancelTx(ctx, tx, in.EventID, userID, in.BookingID, in.CancelAll)
		if err != nil {
			return err
		}

		seats := 0
		for _, b := range cancelled {
			seats += b.NumberOfSeats
		}
		// Clamp so a counter already drifted low can never go negative.
		released := seats
		if released > ev.ReservedSeats {
			s.l.Errorf(ctx, "service.Reservation.CancelBooking: event %d reserved %d below released %d", ev.ID, ev.ReservedSeats, seats)
			released = ev.ReservedSeats
		}

		if err := s.events.AddReservedSeats(ctx, tx, ev.ID, -released); err != nil {
			return err
		}

		out.CancelledBookings = cancelled
		out.SeatsReleased = released
		out.ReservedSeats = ev.ReservedSeats - released
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetEventReservedSeats(ctx, in.EventID, out.ReservedSeats); err != nil {
		s.l.Errorf(ctx, "service.Reservation.CancelBooking: mirror counter for event %d: %v", in.EventID, err)
		s.reconciler.Trigger()
	}
	for i := range out.CancelledBookings {
		if err := s.cache.PutBooking(ctx, &out.CancelledBookings[i]); err != nil {
			s.l.Errorf(ctx, "service.Reservation.CancelBooking: mirror booking %d: %v", out.CancelledBookings[i].ID, err)
			s.reconciler.Trigger()
			break
		}
	}

	if out.SeatsReleased > 0 {
		trg := kafka.WaitlistAllocationTrigger{EventID: in.EventID}
		if err := s.producer.PublishWaitlistTrigger(ctx, trg); err != nil {
			// Freed seats stay reserved for the waitlist until the next
			// trigger or reconciliation; nothing is lost.
			s.l.Errorf(ctx, "service.Reservation.CancelBooking: publish trigger for event %d: %v", in.EventID, err)
		}
	}

	return &out, nil
}

// UpdateCapacity resizes the event. Shrinking below the reserved count is
// rejected; growth schedules an allocation pass for the new seats.
func (s *implReservationService) UpdateCapacity(ctx context.Context, eventID int64, capacity int) (*models.Event, error) {
	var (
		updated *models.Event
		grew    bool
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		ev, err := s.events.LockForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		if capacity < ev.ReservedSeats {
			return apperrors.ErrCapacityBelowReserved
		}

		if err := s.events.SetCapacity(ctx, tx, eventID, capacity); err != nil {
			return err
		}

		grew = capacity > ev.Capacity
		ev.Capacity = capacity
		updated = ev
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.cache.PutEvent(ctx, updated); err != nil {
		s.l.Errorf(ctx, "service.Reservation.UpdateCapacity: mirror event %d: %v", eventID, err)
		s.reconciler.Trigger()
	}

	if grew {
		trg := kafka.WaitlistAllocationTrigger{EventID: eventID}
		if err := s.producer.PublishWaitlistTrigger(ctx, trg); err != nil {
			s.l.Errorf(ctx, "service.Reservation.UpdateCapacity: publish trigger for event %d: %v", eventID, err)
		}
	}

	return updated, nil
}

// SetWaitlistClosed flips the per-event admission flag for the waitlist.
// The flag lives in the mirror only; existing entries are untouched either
// way and closing does not drain the queue.
func (s *implReservationService) SetWaitlistClosed(ctx context.Context, eventID int64, closed bool) error {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return err
	}
	if err := s.cache.SetWaitlistClosed(ctx, eventID, closed); err != nil {
		s.l.Errorf(ctx, "service.Reservation.SetWaitlistClosed: event %d: %v", eventID, err)
		return err
	}
	return nil
}

// notify publishes a user notification, fire-and-forget. A lost
// notification never blocks or rolls back seat accounting.
func (s *implReservationService) notify(ctx context.Context, typ kafka.NotificationType, email string, userID, eventID int64, seats int, cost *decimal.Decimal) {
	event := kafka.NotificationEvent{
		Channel: "email",
		Type:    typ,
		Payload: kafka.NotificationPayload{
			UserEmail:     email,
			UserID:        userID,
			EventID:       eventID,
			NumberOfSeats: seats,
			TotalCost:     cost,
		},
	}
	if err := s.producer.PublishNotification(ctx, event); err != nil {
		s.l.Errorf(ctx, "service.Reservation.notify: %s for user %d: %v", typ, userID, err)
	}
}
