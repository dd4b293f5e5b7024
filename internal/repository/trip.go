package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
)

// TripRepository defines the persistence operations for trips.
type TripRepository interface {
	// Create persists a new trip.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetByIDForUpdate retrieves a trip and locks it until the enclosing
	// unit of work ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error)

	// GetAll retrieves the most recent trips.
	GetAll(ctx context.Context) ([]*domain.Trip, error)

	// SetStatus moves a trip to status only if its stored status still equals
	// expected. Returns ErrStatusMismatch when the condition fails.
	SetStatus(ctx context.Context, id string, status, expected domain.TripStatus, at time.Time) error

	// Assign stores the driver assignment and moves the trip to ASSIGNED,
	// conditional on the stored status equalling expected.
	Assign(ctx context.Context, id string, assignment *domain.DriverAssignment, expected domain.TripStatus) error

	// UpdatePrice changes the total price, conditional on the stored status equalling expected.
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal, expected domain.TripStatus) error
}
