package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	kafka "github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka"
	"github.com/VaibhavVermaa16/AtomicSeats/internal/delivery/kafka/producer"
	"github.com/VaibhavVermaa16/AtomicSeats/pkg/logger"
)

// AdmissionService accepts booking intents and hands them to the ordered
// queue. It never touches authoritative seat state; its only cache read is
// the advisory waitlist-closed hint.
type AdmissionService interface {
	SubmitBooking(ctx context.Context, in SubmitBookingInput) (*SubmitBookingOutput, error)
}

type implAdmissionService struct {
	l        logger.Logger
	producer producer.Producer
	cache    CacheRepository
	maxSeats int
}

func NewAdmissionService(l logger.Logger, prod producer.Producer, cache CacheRepository, maxSeats int) AdmissionService {
	return &implAdmissionService{
		l:        l,
		producer: prod,
		cache:    cache,
		maxSeats: maxSeats,
	}
}

func (s *implAdmissionService) SubmitBooking(ctx context.Context, in SubmitBookingInput) (*SubmitBookingOutput, error) {
	if in.UserID <= 0 || in.UserEmail == "" {
		return nil, ErrMissingUser
	}
	if in.EventID <= 0 {
		return nil, ErrMissingEvent
	}
	if in.NumberOfSeats < 1 || in.NumberOfSeats > s.maxSeats {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrSeatsOutOfRange, in.NumberOfSeats, s.maxSeats)
	}

	// Advisory only. A stale or failed read means the worker decides from
	// its own view; admission never rejects on the hint.
	closedHint, err := s.cache.IsWaitlistClosed(ctx, in.EventID)
	if err != nil {
		s.l.Warnf(ctx, "service.Admission.SubmitBooking: closed hint unavailable for event %d: %v", in.EventID, err)
		closedHint = false
	}

	req := kafka.BookingRequest{
		MessageID:          uuid.NewString(),
		UserID:             in.UserID,
		EventID:            in.EventID,
		NumberOfSeats:      in.NumberOfSeats,
		UserEmail:          in.UserEmail,
		WaitlistClosedHint: closedHint,
	}

	if err := s.producer.PublishBookingRequest(ctx, req); err != nil {
		s.l.Errorf(ctx, "service.Admission.SubmitBooking: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}

	return &SubmitBookingOutput{
		MessageID:   req.MessageID,
		SubmittedAt: time.Now().UTC(),
	}, nil
}
