package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TriggerSource names the external actor that reported a trip as finished.
type TriggerSource string

const (
	TriggerQRScan TriggerSource = "qr-scan"
	TriggerManual TriggerSource = "manual"
)

// Trigger is the payload every completion request carries. ActorID is audit
// metadata and never influences calculations.
type Trigger struct {
	Source  TriggerSource `validate:"required,oneof=qr-scan manual"`
	ActorID string        `validate:"max=128"`
}

// Settlement is the pure result of settling a trip.
type Settlement struct {
	// DriverDelta is the signed change to the driver's balance.
	DriverDelta decimal.Decimal
	// CompanyRevenue is revenue recognized at completion (non-cash trips only).
	CompanyRevenue decimal.Decimal
	// CompanyExpenseNow is expense recognized at completion. Payouts are
	// recognized later, so this is zero for every supported case.
	CompanyExpenseNow decimal.Decimal
	// CompanyShare is the company's retained portion of the fare.
	CompanyShare decimal.Decimal
}

// SettlementSummary is returned to the caller of a trip completion.
type SettlementSummary struct {
	TripID           string
	DriverKey        DriverKey
	Status           TripStatus
	PaymentMethod    PaymentMethod
	TotalPrice       decimal.Decimal
	DriverDelta      decimal.Decimal
	CompanyRevenue   decimal.Decimal
	CompanyShare     decimal.Decimal
	BalanceBefore    decimal.Decimal
	BalanceAfter     decimal.Decimal
	TransactionID    int64
	RevenueEntryID   string
	TriggerSource    TriggerSource
	CompletedAt      time.Time
	AlreadyCompleted bool
}

// Payout is the result of recording a driver payout or cash handover.
type Payout struct {
	Reference     string
	DriverKey     DriverKey
	Amount        decimal.Decimal
	Description   string
	TransactionID int64
	EntryID       string
	BalanceAfter  decimal.Decimal
	CreatedAt     time.Time
	// Replayed is true when the reference had already been recorded.
	Replayed bool
}

// LedgerVerification reports whether a driver's cached balance matches its log.
type LedgerVerification struct {
	DriverKey    DriverKey
	Balance      decimal.Decimal
	LogSum       decimal.Decimal
	Transactions int
	Consistent   bool
}
