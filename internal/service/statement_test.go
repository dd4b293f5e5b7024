package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferledger/internal/domain"
)

func TestGenerateStatement(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 20)
	ctx := context.Background()

	card := env.assignedTrip(t, "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"))
	_, err := env.gateway.CompleteTrip(ctx, card.ID, qrTrigger())
	require.NoError(t, err)

	cash := env.assignedTrip(t, "50", domain.PaymentMethodCash, domain.Affiliated("drv-1"))
	_, err = env.gateway.CompleteTrip(ctx, cash.ID, qrTrigger())
	require.NoError(t, err)

	_, err = env.payouts.RecordPayout(ctx, MovementRequest{DriverKey: "drv-1", Amount: dec("30"), Reference: "p-1"})
	require.NoError(t, err)

	statements := NewStatementService(env.ledger)
	statement, err := statements.GenerateStatement(ctx, "drv-1")
	require.NoError(t, err)

	require.Len(t, statement.Transactions, 3)
	assert.True(t, statement.Earnings.Equal(dec("80")))
	assert.True(t, statement.Debts.Equal(dec("10")))
	assert.True(t, statement.Payouts.Equal(dec("30")))
	assert.True(t, statement.Handovers.IsZero())
	assert.True(t, statement.Account.Balance.Equal(dec("40")))

	text := statements.FormatStatement(statement)
	assert.Contains(t, text, "DRIVER STATEMENT")
	assert.Contains(t, text, "Driver drv-1")
	assert.Contains(t, text, "+80.00")
	assert.Contains(t, text, "-10.00")
	assert.Contains(t, text, "BALANCE:        +40.00")
	assert.Contains(t, text, "Company owes driver.")
}

func TestGenerateStatement_EmptyAccount(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 20)

	statements := NewStatementService(env.ledger)
	statement, err := statements.GenerateStatement(context.Background(), "drv-1")
	require.NoError(t, err)

	assert.Empty(t, statement.Transactions)
	text := statements.FormatStatement(statement)
	assert.Contains(t, text, "(none)")
	assert.Contains(t, text, "Settled.")
}

func TestGenerateStatement_UnknownDriver(t *testing.T) {
	env := newTestEnv(t)

	_, err := NewStatementService(env.ledger).GenerateStatement(context.Background(), "ghost")
	assert.True(t, errors.Is(err, ErrDriverNotFound))
}
