package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event is the authoritative capacity record. ReservedSeats is mutated only
// by the reservation worker and the waitlist allocator, under a row lock.
type Event struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	HostID        int64           `json:"host_id"`
	Venue         string          `json:"venue"`
	StartsAt      time.Time       `json:"starts_at"`
	EndsAt        time.Time       `json:"ends_at"`
	Capacity      int             `json:"capacity"`
	ReservedSeats int             `json:"reserved_seats"`
	Price         decimal.Decimal `json:"price"`
}

// Available returns the number of seats that can still be reserved.
func (e *Event) Available() int {
	return e.Capacity - e.ReservedSeats
}

func (e *Event) IsSoldOut() bool {
	return e.ReservedSeats >= e.Capacity
}
