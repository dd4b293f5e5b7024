package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus represents the lifecycle state of a transfer trip.
type TripStatus string

const (
	TripStatusPending    TripStatus = "PENDING"
	TripStatusAssigned   TripStatus = "ASSIGNED"
	TripStatusConfirmed  TripStatus = "CONFIRMED"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
	TripStatusCompleted  TripStatus = "COMPLETED"
	TripStatusCancelled  TripStatus = "CANCELLED"
)

// Trip represents a transfer reservation and its settlement-relevant fields.
type Trip struct {
	ID            string
	Status        TripStatus
	TotalPrice    decimal.Decimal
	Currency      string
	PaymentMethod PaymentMethod
	Assignment    *DriverAssignment

	// Descriptive fields, copied onto ledger rows for audit display only.
	CustomerName   string
	PickupAddress  string
	DropoffAddress string

	CreatedAt   time.Time
	ConfirmedAt time.Time
	StartedAt   time.Time
	CompletedAt time.Time
	CancelledAt time.Time
}

// IsSettled reports whether settlement has been applied. Completed is the
// idempotency token; there is no separate "processed" flag.
func (t *Trip) IsSettled() bool {
	return t.Status == TripStatusCompleted
}

// PriceLocked reports whether the total price can no longer change.
func (t *Trip) PriceLocked() bool {
	switch t.Status {
	case TripStatusPending, TripStatusAssigned:
		return false
	default:
		return true
	}
}

// Route returns a human readable pickup → dropoff description.
func (t *Trip) Route() string {
	if t.PickupAddress == "" && t.DropoffAddress == "" {
		return ""
	}
	return t.PickupAddress + " → " + t.DropoffAddress
}
