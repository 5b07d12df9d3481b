package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/VaibhavVermaa16/AtomicSeats/internal/models"
)

type SubmitBookingInput struct {
	UserID        int64  `json:"user_id" validate:"required"`
	EventID       int64  `json:"event_id" validate:"required"`
	NumberOfSeats int    `json:"number_of_seats" validate:"required"`
	UserEmail     string `json:"user_email" validate:"required,email"`
}

type SubmitBookingOutput struct {
	MessageID   string    `json:"message_id"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// reserveStatus is the terminal state of one capacity transaction.
type reserveStatus int

const (
	reserveConfirmed reserveStatus = iota
	reservePartial
	reserveSoldOut
)

// reserveOutcome carries everything decided under the row lock so that the
// post-commit stages (cache sync, waitlist routing, notifications) need no
// further reads of authoritative state.
type reserveOutcome struct {
	status         reserveStatus
	booking        *models.Booking
	seatsConfirmed int
	seatsRemaining int
	reservedSeats  int // value after the commit
}

type CancelBookingInput struct {
	EventID   int64  `json:"event_id" validate:"required"`
	BookingID *int64 `json:"booking_id,omitempty"`
	CancelAll bool   `json:"cancel_all,omitempty"`
}

type CancelBookingOutput struct {
	CancelledBookings []models.Booking `json:"cancelled_bookings"`
	SeatsReleased     int              `json:"seats_released"`
	ReservedSeats     int              `json:"reserved_seats"`
}

type CreateEventInput struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description" validate:"required"`
	Venue       string          `json:"venue" validate:"required"`
	StartsAt    time.Time       `json:"starts_at" validate:"required"`
	EndsAt      time.Time       `json:"ends_at" validate:"required"`
	Capacity    int             `json:"capacity" validate:"required,gt=0"`
	Price       decimal.Decimal `json:"price"`
}

// Allocation is one waitlist grant produced by an allocation pass.
type Allocation struct {
	UserID        int64
	UserEmail     string
	NumberOfSeats int
	TotalCost     decimal.Decimal
	Partial       bool
}

// AllocationResult summarises a single allocator transaction.
type AllocationResult struct {
	EventID       int64
	Allocations   []Allocation
	SeatsGranted  int
	ReservedSeats int
	Bookings      []models.Booking
}
