package models

import "time"

// WaitlistEntry is a pending seat request. FIFO order is defined by
// (CreatedAt, ID) ascending. NumberOfSeats may shrink in place when the
// allocator partially drains the head of the queue.
type WaitlistEntry struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	EventID       int64     `json:"event_id"`
	NumberOfSeats int       `json:"number_of_seats"`
	CreatedAt     time.Time `json:"created_at"`
}
