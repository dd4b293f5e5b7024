// Package events publishes settlement facts to downstream consumers after the
// ledger commit that produced them.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys.
const (
	TripSettled    = "trip.settled"
	DriverPayout   = "driver.payout"
	CashReconciled = "cash.reconciled"
)

// Event is the JSON envelope of every published message.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

// TripSettledPayload describes a completed and settled trip.
type TripSettledPayload struct {
	TripID         string          `json:"trip_id"`
	DriverKey      string          `json:"driver_key"`
	PaymentMethod  string          `json:"payment_method"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	DriverDelta    decimal.Decimal `json:"driver_delta"`
	CompanyRevenue decimal.Decimal `json:"company_revenue"`
	BalanceAfter   decimal.Decimal `json:"balance_after"`
	TriggerSource  string          `json:"trigger_source"`
	ActorID        string          `json:"actor_id,omitempty"`
}

// LedgerMovementPayload describes a payout or a cash handover.
type LedgerMovementPayload struct {
	DriverKey    string          `json:"driver_key"`
	Reference    string          `json:"reference"`
	Amount       decimal.Decimal `json:"amount"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	Description  string          `json:"description,omitempty"`
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
