package errors

import "errors"

var (
	ErrEventNotFound   = errors.New("event not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrWaitlistEmpty   = errors.New("waitlist is empty")

	ErrCapacityBelowReserved = errors.New("capacity cannot drop below reserved seats")

	// ErrInvariantViolation marks states that should be impossible, such as
	// negative availability under the row lock. Requires reconciliation or
	// manual intervention, never an automatic retry.
	ErrInvariantViolation = errors.New("seat accounting invariant violated")
)
