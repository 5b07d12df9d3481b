package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MessageKind discriminates the envelope variants on the booking-requests
// topic. The consumer dispatches on it instead of sniffing field presence.
type MessageKind string

const (
	KindBookingRequest            MessageKind = "booking_request"
	KindWaitlistAllocationTrigger MessageKind = "waitlist_allocation_trigger"
)

// Envelope is the tagged wire format for reservation commands.
type Envelope struct {
	Kind    MessageKind     `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func NewEnvelope(kind MessageKind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{Kind: kind, Payload: raw})
}

func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	if env.Kind == "" {
		return nil, fmt.Errorf("envelope missing kind discriminator")
	}
	return &env, nil
}

// BookingRequest is the admission stage's output. MessageID is the
// consumer-side idempotency key; WaitlistClosedHint is a best-effort cache
// annotation, never an authoritative decision.
type BookingRequest struct {
	MessageID          string `json:"messageId"`
	UserID             int64  `json:"userId"`
	EventID            int64  `json:"eventId"`
	NumberOfSeats      int    `json:"numberOfSeats"`
	UserEmail          string `json:"userEmail"`
	WaitlistClosedHint bool   `json:"waitlistClosedHint"`
}

// WaitlistAllocationTrigger asks the worker to run an allocation pass for
// one event, after a cancellation or a capacity increase.
type WaitlistAllocationTrigger struct {
	EventID int64 `json:"eventId"`
}

type NotificationType string

const (
	NotificationBookingConfirmed  NotificationType = "booking_confirmed"
	NotificationBookingFailed     NotificationType = "booking_failed"
	NotificationWaitlisted        NotificationType = "waitlisted"
	NotificationWaitlistConfirmed NotificationType = "waitlist_confirmed"
	NotificationWaitlistClosed    NotificationType = "waitlist_closed"
)

type NotificationPayload struct {
	UserEmail     string           `json:"userEmail"`
	UserID        int64            `json:"userId"`
	EventID       int64            `json:"eventId"`
	NumberOfSeats int              `json:"numberOfSeats"`
	TotalCost     *decimal.Decimal `json:"totalCost,omitempty"`
}

// NotificationEvent is the generic shape consumed by the external notifier.
type NotificationEvent struct {
	Channel string              `json:"channel"`
	Type    NotificationType    `json:"type"`
	Payload NotificationPayload `json:"payload"`
}
