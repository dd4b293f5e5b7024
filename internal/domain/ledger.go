package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerEntryKind distinguishes recognized revenue from recognized expense.
type LedgerEntryKind string

const (
	LedgerEntryRevenue LedgerEntryKind = "REVENUE"
	LedgerEntryExpense LedgerEntryKind = "EXPENSE"
)

// LedgerSource records which event produced a company ledger row.
type LedgerSource string

const (
	LedgerSourceTripCompletion     LedgerSource = "TRIP_COMPLETION"
	LedgerSourceCashReconciliation LedgerSource = "CASH_RECONCILIATION"
	LedgerSourceDriverPayout       LedgerSource = "DRIVER_PAYOUT"
)

// CompanyLedgerEntry is one recognized revenue or expense row. Revenue rows from
// trip completion carry TripID; expense and reconciliation rows carry DriverKey.
type CompanyLedgerEntry struct {
	ID          string
	Kind        LedgerEntryKind
	Source      LedgerSource
	TripID      string
	DriverKey   DriverKey
	Reference   string
	Amount      decimal.Decimal
	Description string
	CreatedAt   time.Time
}

// LedgerSummary aggregates the company ledger.
type LedgerSummary struct {
	Revenue decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
	Entries int
}

// RevenueReference returns the company ledger reference for trip revenue.
func RevenueReference(tripID string) string {
	return "revenue:" + TripReference(tripID)
}
