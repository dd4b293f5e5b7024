package domain

import "errors"

var (
	// ErrInvalidAssignment is returned when a driver assignment is missing required fields.
	ErrInvalidAssignment = errors.New("invalid driver assignment")

	// ErrInvalidPhone is returned when a phone number cannot be normalized.
	ErrInvalidPhone = errors.New("invalid phone number")
)
