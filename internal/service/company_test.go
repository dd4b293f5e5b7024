package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferledger/internal/domain"
)

func TestCompanyLedger_RecordRevenueOncePerTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.company.RecordRevenue(ctx, "trip-1", dec("120"))
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerEntryRevenue, first.Kind)
	assert.Equal(t, domain.LedgerSourceTripCompletion, first.Source)
	assert.Equal(t, "trip-1", first.TripID)

	second, err := env.company.RecordRevenue(ctx, "trip-1", dec("120"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = env.company.RecordRevenue(ctx, "trip-2", dec("0"))
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = env.company.RecordRevenue(ctx, "", dec("1"))
	assert.ErrorIs(t, err, ErrInvalidTripID)
}

func TestCompanyLedger_EntriesAndSummary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.company.RecordRevenue(ctx, "trip-1", dec("100"))
	require.NoError(t, err)
	_, err = env.company.RecordRevenue(ctx, "trip-2", dec("50.25"))
	require.NoError(t, err)
	expense, err := env.company.RecordExpense(ctx, "drv-1", dec("60"), "fuel advance")
	require.NoError(t, err)
	assert.Equal(t, domain.LedgerEntryExpense, expense.Kind)
	assert.Equal(t, domain.DriverKey("drv-1"), expense.DriverKey)

	all, err := env.company.Entries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	revenue, err := env.company.Entries(ctx, domain.LedgerEntryRevenue)
	require.NoError(t, err)
	assert.Len(t, revenue, 2)

	_, err = env.company.Entries(ctx, domain.LedgerEntryKind("BOGUS"))
	assert.Error(t, err)

	summary, err := env.company.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, "150.25", summary.Revenue.String())
	assert.Equal(t, "60", summary.Expense.String())
	assert.Equal(t, "90.25", summary.Net.String())
	assert.Equal(t, 3, summary.Entries)

	_, err = env.company.RecordExpense(ctx, "", dec("1"), "")
	assert.ErrorIs(t, err, ErrInvalidDriverID)
}

func TestCompanyLedger_EntriesUnknownKind(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.company.Entries(context.Background(), "REFUND")
	assert.True(t, errors.Is(err, ErrInvalidLedgerKind))
}
