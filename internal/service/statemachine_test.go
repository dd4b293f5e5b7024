package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"transferledger/internal/domain"
)

func TestGuardTransition(t *testing.T) {
	driver := domain.Affiliated("drv-1")

	tests := []struct {
		name       string
		status     domain.TripStatus
		assignment *domain.DriverAssignment
		next       domain.TripStatus
		wantErr    error
	}{
		{"assign pending", domain.TripStatusPending, driver, domain.TripStatusAssigned, nil},
		{"reassign", domain.TripStatusAssigned, driver, domain.TripStatusAssigned, nil},
		{"confirm assigned", domain.TripStatusAssigned, driver, domain.TripStatusConfirmed, nil},
		{"start confirmed", domain.TripStatusConfirmed, driver, domain.TripStatusInProgress, nil},
		{"start assigned", domain.TripStatusAssigned, driver, domain.TripStatusInProgress, nil},
		{"complete in progress", domain.TripStatusInProgress, driver, domain.TripStatusCompleted, nil},
		{"complete confirmed", domain.TripStatusConfirmed, driver, domain.TripStatusCompleted, nil},
		{"complete assigned", domain.TripStatusAssigned, driver, domain.TripStatusCompleted, nil},
		{"cancel pending", domain.TripStatusPending, nil, domain.TripStatusCancelled, nil},
		{"cancel in progress", domain.TripStatusInProgress, driver, domain.TripStatusCancelled, nil},
		{"complete pending without driver", domain.TripStatusPending, nil, domain.TripStatusCompleted, ErrUnassigned},
		{"start pending without driver", domain.TripStatusPending, nil, domain.TripStatusInProgress, ErrUnassigned},
		{"confirm pending with driver", domain.TripStatusPending, driver, domain.TripStatusConfirmed, ErrInvalidTransition},
		{"back to pending", domain.TripStatusAssigned, driver, domain.TripStatusPending, ErrInvalidTransition},
		{"confirm in progress", domain.TripStatusInProgress, driver, domain.TripStatusConfirmed, ErrInvalidTransition},
		{"complete completed", domain.TripStatusCompleted, driver, domain.TripStatusCompleted, ErrAlreadyCompleted},
		{"cancel completed", domain.TripStatusCompleted, driver, domain.TripStatusCancelled, ErrInvalidTransition},
		{"complete cancelled", domain.TripStatusCancelled, driver, domain.TripStatusCompleted, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := &domain.Trip{ID: "trip-1", Status: tt.status, Assignment: tt.assignment}
			err := GuardTransition(trip, tt.next)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
