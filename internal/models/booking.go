package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is immutable once confirmed except for the status/cancelledAt
// transition. Cost is fixed at commit time and never recomputed.
type Booking struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	EventID       int64           `json:"event_id"`
	NumberOfSeats int             `json:"number_of_seats"`
	Cost          decimal.Decimal `json:"cost"`
	Status        BookingStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	CancelledAt   *time.Time      `json:"cancelled_at,omitempty"`
}

func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed
}
