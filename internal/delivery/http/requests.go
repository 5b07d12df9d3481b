package http

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/VaibhavVermaa16/AtomicSeats/internal/service"
)

func parseCreateEventRequest(req createEventRequest) (service.CreateEventInput, error) {
	startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
	if err != nil {
		return service.CreateEventInput{}, fmt.Errorf("parse starts_at: %w", err)
	}
	endsAt, err := time.Parse(time.RFC3339, req.EndsAt)
	if err != nil {
		return service.CreateEventInput{}, fmt.Errorf("parse ends_at: %w", err)
	}
	if !endsAt.After(startsAt) {
		return service.CreateEventInput{}, fmt.Errorf("ends_at must be after starts_at")
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		return service.CreateEventInput{}, fmt.Errorf("parse price: %w", err)
	}
	if price.IsNegative() {
		return service.CreateEventInput{}, fmt.Errorf("price must not be negative")
	}

	return service.CreateEventInput{
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		Capacity:    req.Capacity,
		Price:       price,
	}, nil
}
