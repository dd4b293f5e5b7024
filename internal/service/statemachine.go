package service

import (
	"fmt"

	"transferledger/internal/domain"
)

// GuardTransition reports whether trip may move to next.
//
// A completed trip is the idempotency token for settlement: asking to complete
// it again yields ErrAlreadyCompleted, anything else is ErrInvalidTransition.
// Transitions that need a driver fail with ErrUnassigned before the lifecycle
// table is consulted.
func GuardTransition(trip *domain.Trip, next domain.TripStatus) error {
	switch trip.Status {
	case domain.TripStatusCompleted:
		if next == domain.TripStatusCompleted {
			return ErrAlreadyCompleted
		}
		return fmt.Errorf("%w: trip is completed", ErrInvalidTransition)
	case domain.TripStatusCancelled:
		return fmt.Errorf("%w: trip is cancelled", ErrInvalidTransition)
	}

	if next.RequiresDriver() && trip.Assignment == nil {
		return ErrUnassigned
	}

	if !trip.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, trip.Status, next)
	}
	return nil
}
