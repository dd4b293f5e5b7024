package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// TripRepository is an in-memory implementation of repository.TripRepository.
type TripRepository struct {
	scope *scope
}

func copyTrip(t *domain.Trip) *domain.Trip {
	c := *t
	if t.Assignment != nil {
		a := *t.Assignment
		if a.AdHoc != nil {
			adHoc := *a.AdHoc
			a.AdHoc = &adHoc
		}
		c.Assignment = &a
	}
	return &c
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	return r.scope.run(func(d *dataset) error {
		if _, ok := d.trips[trip.ID]; ok {
			return repository.ErrDuplicate
		}
		d.trips[trip.ID] = copyTrip(trip)
		return nil
	})
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	var out *domain.Trip
	err := r.scope.run(func(d *dataset) error {
		trip, ok := d.trips[id]
		if !ok {
			return repository.ErrNotFound
		}
		out = copyTrip(trip)
		return nil
	})
	return out, err
}

// GetByIDForUpdate retrieves a trip. Units of work are serialized by the
// store, so the read is already exclusive.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	return r.GetByID(ctx, id)
}

// GetAll retrieves all trips, newest first.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	var out []*domain.Trip
	err := r.scope.run(func(d *dataset) error {
		out = make([]*domain.Trip, 0, len(d.trips))
		for _, trip := range d.trips {
			out = append(out, copyTrip(trip))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, err
}

// SetStatus performs the conditional status write.
func (r *TripRepository) SetStatus(ctx context.Context, id string, status, expected domain.TripStatus, at time.Time) error {
	return r.mutate(id, expected, func(trip *domain.Trip) {
		trip.Status = status
		switch status {
		case domain.TripStatusConfirmed:
			trip.ConfirmedAt = at
		case domain.TripStatusInProgress:
			trip.StartedAt = at
		case domain.TripStatusCompleted:
			trip.CompletedAt = at
		case domain.TripStatusCancelled:
			trip.CancelledAt = at
		}
	})
}

// Assign stores the assignment and moves the trip to ASSIGNED.
func (r *TripRepository) Assign(ctx context.Context, id string, assignment *domain.DriverAssignment, expected domain.TripStatus) error {
	return r.mutate(id, expected, func(trip *domain.Trip) {
		trip.Status = domain.TripStatusAssigned
		trip.Assignment = copyTrip(&domain.Trip{Assignment: assignment}).Assignment
	})
}

// UpdatePrice changes the total price.
func (r *TripRepository) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, expected domain.TripStatus) error {
	return r.mutate(id, expected, func(trip *domain.Trip) {
		trip.TotalPrice = price
	})
}

func (r *TripRepository) mutate(id string, expected domain.TripStatus, apply func(trip *domain.Trip)) error {
	return r.scope.run(func(d *dataset) error {
		trip, ok := d.trips[id]
		if !ok {
			return repository.ErrNotFound
		}
		if trip.Status != expected {
			return repository.ErrStatusMismatch
		}
		updated := copyTrip(trip)
		apply(updated)
		d.trips[id] = updated
		return nil
	})
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
