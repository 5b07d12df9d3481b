package service

import (
	"context"
	"errors"

	apperrors "github.com/VaibhavVermaa16/AtomicSeats/internal/errors"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// EventService covers event administration and the read paths. Reads go
// through the mirror first and fall back to the database; admin writes go
// to the database and update the mirror best-effort.
type EventService interface {
	CreateEvent(ctx context.Context, hostID int64, in CreateEventInput) (*models.Event, error)
	DeleteEvent(ctx context.Context, eventID int64) error
	GetEvent(ctx context.Context, eventID int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)

	ListUserBookings(ctx context.Context, userID int64) ([]models.Booking, error)
	ListEventWaitlist(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error)
}

type implEventService struct {
	l          logger.Logger
	events     EventStore
	bookings   BookingStore
	waitlist   WaitlistStore
	cache      CacheRepository
	reconciler ReconcileTrigger
}

func NewEventService(
	l logger.Logger,
	events EventStore,
	bookings BookingStore,
	waitlist WaitlistStore,
	cache CacheRepository,
	reconciler ReconcileTrigger,
) EventService {
	return &implEventService{
		l:          l,
		events:     events,
		bookings:   bookings,
		waitlist:   waitlist,
		cache:      cache,
		reconciler: reconciler,
	}
}

func (s *implEventService) CreateEvent(ctx context.Context, hostID int64, in CreateEventInput) (*models.Event, error) {
	ev, err := s.events.Create(ctx, &models.Event{
		Name:        in.Name,
		Description: in.Description,
		HostID:      hostID,
		Venue:       in.Venue,
		StartsAt:    in.StartsAt,
		EndsAt:      in.EndsAt,
		Capacity:    in.Capacity,
		Price:       in.Price,
	})
	if err != nil {
		s.l.Errorf(ctx, "service.Event.CreateEvent: %v", err)
		return nil, err
	}

	if err := s.cache.PutEvent(ctx, ev); err != nil {
		s.l.Errorf(ctx, "service.Event.CreateEvent: mirror event %d: %v", ev.ID, err)
		s.reconciler.Trigger()
	}
	return ev, nil
}

func (s *implEventService) DeleteEvent(ctx context.Context, eventID int64) error {
	if err := s.events.Delete(ctx, eventID); err != nil {
		return err
	}
	if err := s.cache.DeleteEvent(ctx, eventID); err != nil {
		s.l.Errorf(ctx, "service.Event.DeleteEvent: mirror event %d: %v", eventID, err)
		s.reconciler.Trigger()
	}
	return nil
}

// GetEvent answers from the mirror when it can; a miss or a broken mirror
// falls back to the database and repopulates the mirror on the way out.
func (s *implEventService) GetEvent(ctx context.Context, eventID int64) (*models.Event, error) {
	ev, err := s.cache.GetEvent(ctx, eventID)
	if err == nil {
		return ev, nil
	}
	if !errors.Is(err, apperrors.ErrCacheMiss) {
		s.l.Warnf(ctx, "service.Event.GetEvent: mirror read for event %d: %v", eventID, err)
	}

	ev, err = s.events.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.PutEvent(ctx, ev); err != nil {
		s.l.Warnf(ctx, "service.Event.GetEvent: mirror refill for event %d: %v", eventID, err)
	}
	return ev, nil
}

func (s *implEventService) ListEvents(ctx context.Context) ([]models.Event, error) {
	return s.events.List(ctx)
}

func (s *implEventService) ListUserBookings(ctx context.Context, userID int64) ([]models.Booking, error) {
	return s.bookings.ListByUser(ctx, userID)
}

func (s *implEventService) ListEventWaitlist(ctx context.Context, eventID int64) ([]models.WaitlistEntry, error) {
	if _, err := s.events.Get(ctx, eventID); err != nil {
		return nil, err
	}
	return s.waitlist.ListByEvent(ctx, eventID)
}
