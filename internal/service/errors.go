package service

import "errors"

var (
	ErrSeatsOutOfRange = errors.New("number of seats must be between 1 and the configured maximum")
	ErrMissingUser     = errors.New("user id and email are required")
	ErrMissingEvent    = errors.New("event id is required")

	ErrPublishFailed = errors.New("failed to publish booking request")
)
