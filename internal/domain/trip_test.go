package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2024, 5, 17, 9, 30, 0, 0, time.UTC)

func TestTripStatus_CanTransitionTo(t *testing.T) {
	all := []TripStatus{
		TripStatusPending, TripStatusAssigned, TripStatusConfirmed,
		TripStatusInProgress, TripStatusCompleted, TripStatusCancelled,
	}

	for _, from := range all {
		assert.True(t, from.Valid())
		for _, to := range all {
			if from.IsTerminal() {
				assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
			}
			if to == TripStatusPending {
				assert.False(t, from.CanTransitionTo(to), "%s -> %s", from, to)
			}
		}
		if !from.IsTerminal() {
			assert.True(t, from.CanTransitionTo(TripStatusCancelled), "%s -> CANCELLED", from)
		}
	}

	assert.False(t, TripStatusPending.CanTransitionTo(TripStatusCompleted))
	assert.True(t, TripStatusInProgress.CanTransitionTo(TripStatusCompleted))
	assert.False(t, TripStatus("PAUSED").Valid())
}

func TestTrip_PriceLocked(t *testing.T) {
	tests := []struct {
		status TripStatus
		locked bool
	}{
		{TripStatusPending, false},
		{TripStatusAssigned, false},
		{TripStatusConfirmed, true},
		{TripStatusInProgress, true},
		{TripStatusCompleted, true},
		{TripStatusCancelled, true},
	}

	for _, tt := range tests {
		trip := &Trip{Status: tt.status}
		assert.Equal(t, tt.locked, trip.PriceLocked(), tt.status)
	}
}

func TestTrip_Route(t *testing.T) {
	assert.Equal(t, "", (&Trip{}).Route())
	assert.Equal(t, "IST → Taksim", (&Trip{PickupAddress: "IST", DropoffAddress: "Taksim"}).Route())
}

func TestTransaction_Delta(t *testing.T) {
	amount := decimal.NewFromInt(15)

	tests := []struct {
		kind TransactionKind
		want string
	}{
		{TransactionEarning, "15"},
		{TransactionDebt, "-15"},
		{TransactionPayout, "-15"},
		{TransactionCashHandover, "15"},
	}

	for _, tt := range tests {
		txn := &Transaction{Kind: tt.kind, Amount: amount}
		assert.Equal(t, tt.want, txn.Delta().String(), tt.kind)
	}

	assert.Equal(t, TransactionDebt, SettlementKind(decimal.NewFromInt(-1)))
	assert.Equal(t, TransactionEarning, SettlementKind(decimal.Zero))
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		raw   string
		want  PaymentMethod
		valid bool
	}{
		{"cash", PaymentMethodCash, true},
		{" CARD ", PaymentMethodCard, true},
		{"credit-card", PaymentMethodCard, true},
		{"transfer", PaymentMethodBankTransfer, true},
		{"bank_transfer", PaymentMethodBankTransfer, true},
		{"voucher", PaymentMethod("voucher"), false},
		{"", PaymentMethod(""), false},
	}

	for _, tt := range tests {
		got := ParsePaymentMethod(tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Equal(t, tt.valid, got.Valid(), tt.raw)
	}
	assert.True(t, PaymentMethodCash.IsCash())
	assert.False(t, PaymentMethodCard.IsCash())
}
