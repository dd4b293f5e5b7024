package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind classifies a driver ledger transaction.
type TransactionKind string

const (
	// TransactionEarning increases what the company owes the driver.
	TransactionEarning TransactionKind = "EARNING"
	// TransactionDebt increases what the driver owes the company.
	TransactionDebt TransactionKind = "DEBT"
	// TransactionPayout records money paid out to the driver.
	TransactionPayout TransactionKind = "PAYOUT"
	// TransactionCashHandover records cash handed over by the driver.
	TransactionCashHandover TransactionKind = "CASH_HANDOVER"
)

// Sign returns +1 for kinds that credit the driver and -1 otherwise.
func (k TransactionKind) Sign() int {
	switch k {
	case TransactionEarning, TransactionCashHandover:
		return 1
	default:
		return -1
	}
}

// SettlementKind returns the trip transaction kind for a signed delta.
func SettlementKind(delta decimal.Decimal) TransactionKind {
	if delta.IsNegative() {
		return TransactionDebt
	}
	return TransactionEarning
}

// Transaction is an immutable driver ledger row. Amount is a non-negative
// magnitude; Delta gives the signed balance effect.
type Transaction struct {
	ID            int64
	DriverKey     DriverKey
	Kind          TransactionKind
	Amount        decimal.Decimal
	BalanceBefore decimal.Decimal
	BalanceAfter  decimal.Decimal
	Reference     string
	TripID        string
	PaymentMethod PaymentMethod

	// Audit display only.
	Description   string
	CustomerName  string
	Route         string
	TriggerSource TriggerSource
	ActorID       string

	CreatedAt time.Time
}

// Delta returns the signed balance change of the transaction.
func (t *Transaction) Delta() decimal.Decimal {
	if t.Kind.Sign() < 0 {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Ledger references. A driver can hold at most one transaction per reference.

// TripReference returns the ledger reference of a trip settlement.
func TripReference(tripID string) string {
	return "trip:" + tripID
}

// PayoutReference returns the ledger reference of a driver payout.
func PayoutReference(reference string) string {
	return "payout:" + reference
}

// CashReference returns the ledger reference of a cash handover.
func CashReference(reference string) string {
	return "cash:" + reference
}
