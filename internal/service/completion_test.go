package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transferledger/internal/domain"
	"transferledger/internal/events"
	"transferledger/internal/repository/memory"
)

func TestCompleteTrip_SettlesEveryCase(t *testing.T) {
	tests := []struct {
		name        string
		price       string
		method      domain.PaymentMethod
		assignment  *domain.DriverAssignment
		wantKey     domain.DriverKey
		wantDelta   string
		wantRevenue bool
	}{
		{"affiliated cash", "100", domain.PaymentMethodCash, domain.Affiliated("drv-1"), "drv-1", "-15", false},
		{"affiliated card", "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"), "drv-1", "85", true},
		{"affiliated transfer", "100", domain.PaymentMethodBankTransfer, domain.Affiliated("drv-1"), "drv-1", "85", true},
		{"ad-hoc cash", "150", domain.PaymentMethodCash, adHocDriver("0532 123 45 67", "80"), "adhoc:+905321234567", "-70", false},
		{"ad-hoc card", "150", domain.PaymentMethodCard, adHocDriver("+90 532 123 45 67", "80"), "adhoc:+905321234567", "80", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.registerDriver(t, "drv-1", 15)
			trip := env.assignedTrip(t, tt.price, tt.method, tt.assignment)

			summary, err := env.gateway.CompleteTrip(context.Background(), trip.ID, qrTrigger())
			require.NoError(t, err)

			assert.Equal(t, tt.wantKey, summary.DriverKey)
			assert.Equal(t, domain.TripStatusCompleted, summary.Status)
			assert.True(t, summary.DriverDelta.Equal(dec(tt.wantDelta)), "delta %s", summary.DriverDelta)
			assert.True(t, summary.BalanceAfter.Equal(dec(tt.wantDelta)))
			assert.False(t, summary.AlreadyCompleted)

			txns := env.tripTransactions(t, trip.ID)
			require.Len(t, txns, 1)
			assert.Equal(t, tt.wantKey, txns[0].DriverKey)
			assert.Equal(t, domain.TriggerQRScan, txns[0].TriggerSource)
			assert.Equal(t, "device-1", txns[0].ActorID)
			assert.Equal(t, "Ayse Yilmaz", txns[0].CustomerName)

			account := env.account(t, tt.wantKey)
			assert.True(t, account.Balance.Equal(dec(tt.wantDelta)))
			assert.Equal(t, 1, account.TripCount)

			revenue, err := env.store.Repositories().Ledger.GetByReference(context.Background(), domain.RevenueReference(trip.ID))
			require.NoError(t, err)
			if tt.wantRevenue {
				require.NotNil(t, revenue)
				assert.True(t, revenue.Amount.Equal(dec(tt.price)))
				assert.Equal(t, summary.RevenueEntryID, revenue.ID)
			} else {
				assert.Nil(t, revenue)
				assert.Empty(t, summary.RevenueEntryID)
			}

			stored, err := env.trips.GetTrip(context.Background(), trip.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.TripStatusCompleted, stored.Status)
			assert.False(t, stored.CompletedAt.IsZero())

			assert.Equal(t, []string{events.TripSettled}, env.publisher.types())
		})
	}
}

func TestCompleteTrip_SecondCallIsAlreadyCompleted(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 15)
	trip := env.assignedTrip(t, "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"))
	ctx := context.Background()

	first, err := env.gateway.CompleteTrip(ctx, trip.ID, qrTrigger())
	require.NoError(t, err)

	second, err := env.gateway.CompleteTrip(ctx, trip.ID, domain.Trigger{Source: domain.TriggerManual, ActorID: "staff-7"})
	require.ErrorIs(t, err, ErrAlreadyCompleted)
	require.NotNil(t, second)

	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, first.TransactionID, second.TransactionID)
	assert.True(t, first.DriverDelta.Equal(second.DriverDelta))
	assert.Equal(t, first.RevenueEntryID, second.RevenueEntryID)
	assert.Equal(t, domain.TriggerQRScan, second.TriggerSource)

	assert.Len(t, env.tripTransactions(t, trip.ID), 1)
	entries, err := env.company.Entries(ctx, domain.LedgerEntryRevenue)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, env.account(t, "drv-1").Balance.Equal(dec("85")))
	assert.Len(t, env.publisher.types(), 1)
}

func TestCompleteTrip_ConcurrentTriggersSettleOnce(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 15)
	trip := env.assignedTrip(t, "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"))

	const triggers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		already   int
		other     []error
	)

	for i := 0; i < triggers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			trigger := qrTrigger()
			if i%2 == 1 {
				trigger = domain.Trigger{Source: domain.TriggerManual, ActorID: "staff"}
			}
			_, err := env.gateway.CompleteTrip(context.Background(), trip.ID, trigger)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ErrAlreadyCompleted):
				already++
			default:
				other = append(other, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, triggers-1, already)

	assert.Len(t, env.tripTransactions(t, trip.ID), 1)
	entries, err := env.company.Entries(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.True(t, env.account(t, "drv-1").Balance.Equal(dec("85")))
}

func TestCompleteTrip_ConcurrentTripsForSameDriverKeepEveryDelta(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 10)

	const trips = 20
	ids := make([]string, 0, trips)
	for i := 0; i < trips; i++ {
		method := domain.PaymentMethodCard
		if i%2 == 0 {
			method = domain.PaymentMethodCash
		}
		ids = append(ids, env.assignedTrip(t, "100", method, domain.Affiliated("drv-1")).ID)
	}

	var wg sync.WaitGroup
	errs := make([]error, trips)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.gateway.CompleteTrip(context.Background(), id, qrTrigger())
		}(i, id)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// 10 card trips at +90 and 10 cash trips at -10.
	account := env.account(t, "drv-1")
	assert.True(t, account.Balance.Equal(dec("800")), "balance %s", account.Balance)
	assert.Equal(t, trips, account.TripCount)
	assert.Equal(t, 10, account.CashTrips)
	assert.Equal(t, 10, account.CardTrips)

	verification, err := env.ledger.Verify(context.Background(), "drv-1")
	require.NoError(t, err)
	assert.True(t, verification.Consistent)
	assert.Equal(t, trips, verification.Transactions)
}

func TestCompleteTrip_SettlesPriceChangedAfterRead(t *testing.T) {
	store := &interleavingStore{Store: memory.NewStore()}
	env := newTestEnvWithStore(t, store)
	env.registerDriver(t, "drv-1", 15)
	trip := env.assignedTrip(t, "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"))
	ctx := context.Background()

	store.beforeNextTx(func() {
		_, err := env.trips.UpdatePrice(ctx, trip.ID, dec("200"))
		require.NoError(t, err)
	})

	summary, err := env.gateway.CompleteTrip(ctx, trip.ID, qrTrigger())
	require.NoError(t, err)

	assert.True(t, summary.TotalPrice.Equal(dec("200")))
	assert.True(t, summary.DriverDelta.Equal(dec("170")), "delta %s", summary.DriverDelta)
	assert.True(t, summary.CompanyRevenue.Equal(dec("200")))

	stored, err := env.trips.GetTrip(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusCompleted, stored.Status)
	assert.True(t, stored.TotalPrice.Equal(dec("200")))
	assert.True(t, env.account(t, "drv-1").Balance.Equal(dec("170")))
}

func TestCompleteTrip_SettlesDriverReassignedAfterRead(t *testing.T) {
	store := &interleavingStore{Store: memory.NewStore()}
	env := newTestEnvWithStore(t, store)
	env.registerDriver(t, "drv-1", 15)
	env.registerDriver(t, "drv-2", 15)
	trip := env.assignedTrip(t, "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"))
	ctx := context.Background()

	store.beforeNextTx(func() {
		_, err := env.trips.AssignDriver(ctx, trip.ID, domain.Affiliated("drv-2"))
		require.NoError(t, err)
	})

	summary, err := env.gateway.CompleteTrip(ctx, trip.ID, qrTrigger())
	require.NoError(t, err)
	assert.Equal(t, domain.DriverKey("drv-2"), summary.DriverKey)

	txns := env.tripTransactions(t, trip.ID)
	require.Len(t, txns, 1)
	assert.Equal(t, domain.DriverKey("drv-2"), txns[0].DriverKey)
	assert.True(t, env.account(t, "drv-1").Balance.IsZero())
	assert.True(t, env.account(t, "drv-2").Balance.Equal(dec("85")))
}

func TestCompleteTrip_InvalidPaymentMethodLeavesTripUntouched(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 15)
	env.storedTrip(t, &domain.Trip{
		ID:            "trip-crypto",
		Status:        domain.TripStatusConfirmed,
		TotalPrice:    dec("100"),
		Currency:      "TRY",
		PaymentMethod: domain.PaymentMethod("CRYPTO"),
		Assignment:    domain.Affiliated("drv-1"),
	})

	_, err := env.gateway.CompleteTrip(context.Background(), "trip-crypto", qrTrigger())
	require.ErrorIs(t, err, ErrInvalidPaymentMethod)

	trip, err := env.trips.GetTrip(context.Background(), "trip-crypto")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusConfirmed, trip.Status)
	assert.Empty(t, env.tripTransactions(t, "trip-crypto"))
	assert.True(t, env.account(t, "drv-1").Balance.IsZero())
}

func TestCompleteTrip_GuardFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pending, err := env.trips.CreateTrip(ctx, CreateTripRequest{TotalPrice: dec("100"), PaymentMethod: "cash"})
	require.NoError(t, err)

	_, err = env.gateway.CompleteTrip(ctx, pending.ID, qrTrigger())
	assert.ErrorIs(t, err, ErrUnassigned)

	_, err = env.gateway.CompleteTrip(ctx, "missing", qrTrigger())
	assert.ErrorIs(t, err, ErrTripNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.trips.CancelTrip(ctx, pending.ID)
	require.NoError(t, err)
	_, err = env.gateway.CompleteTrip(ctx, pending.ID, qrTrigger())
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = env.gateway.CompleteTrip(ctx, "", qrTrigger())
	assert.ErrorIs(t, err, ErrInvalidTripID)
}

func TestCompleteTrip_RejectsMalformedTrigger(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		trigger domain.Trigger
	}{
		{"missing source", domain.Trigger{}},
		{"unknown source", domain.Trigger{Source: "nfc"}},
		{"oversized actor", domain.Trigger{Source: domain.TriggerManual, ActorID: string(make([]byte, 129))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.gateway.CompleteTrip(context.Background(), "trip-1", tt.trigger)
			assert.ErrorIs(t, err, ErrInvalidTrigger)
		})
	}
}

func TestCompleteTrip_MissingAffiliatedAccount(t *testing.T) {
	env := newTestEnv(t)
	env.storedTrip(t, &domain.Trip{
		ID:            "trip-ghost",
		Status:        domain.TripStatusAssigned,
		TotalPrice:    dec("100"),
		PaymentMethod: domain.PaymentMethodCard,
		Assignment:    domain.Affiliated("ghost"),
	})

	_, err := env.gateway.CompleteTrip(context.Background(), "trip-ghost", qrTrigger())
	require.ErrorIs(t, err, ErrDriverNotFound)

	trip, err := env.trips.GetTrip(context.Background(), "trip-ghost")
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusAssigned, trip.Status)
}

func TestCompleteTrip_LedgerFailureRollsBackStatus(t *testing.T) {
	env := newTestEnvWithStore(t, &failingStore{Store: memory.NewStore(), ledgerErr: errInjected})
	env.registerDriver(t, "drv-1", 15)
	trip := env.assignedTrip(t, "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"))

	_, err := env.gateway.CompleteTrip(context.Background(), trip.ID, qrTrigger())
	require.ErrorIs(t, err, ErrLedgerWriteFailed)
	assert.ErrorIs(t, err, errInjected)

	stored, err := env.trips.GetTrip(context.Background(), trip.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TripStatusAssigned, stored.Status)
	assert.Empty(t, env.tripTransactions(t, trip.ID))
	assert.True(t, env.account(t, "drv-1").Balance.IsZero())
	assert.Empty(t, env.publisher.types())
}

func TestCompleteTrip_PublishFailureDoesNotFailCompletion(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 15)
	env.publisher.err = errors.New("broker down")
	trip := env.assignedTrip(t, "100", domain.PaymentMethodCash, domain.Affiliated("drv-1"))

	_, err := env.gateway.CompleteTrip(context.Background(), trip.ID, qrTrigger())
	require.NoError(t, err)

	var warned bool
	for _, entry := range env.logs.AllEntries() {
		if entry.Message == "event publish failed" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestCompleteTrip_RefreshesBalanceCache(t *testing.T) {
	env := newTestEnv(t)
	env.registerDriver(t, "drv-1", 15)
	trip := env.assignedTrip(t, "100", domain.PaymentMethodCard, domain.Affiliated("drv-1"))
	ctx := context.Background()

	balance, err := env.ledger.Balance(ctx, "drv-1")
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	_, err = env.gateway.CompleteTrip(ctx, trip.ID, qrTrigger())
	require.NoError(t, err)

	cached := env.cache.cached("drv-1")
	require.NotNil(t, cached)
	assert.True(t, cached.Balance.Equal(dec("85")))
	assert.Equal(t, int64(1), cached.Version)
	assert.Zero(t, env.cache.InvalidateCalls)

	balance, err = env.ledger.Balance(ctx, "drv-1")
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec("85")))
}

func TestScanCode(t *testing.T) {
	tests := []struct {
		code    string
		want    string
		wantErr bool
	}{
		{"0b7c", "0b7c", false},
		{"trip:0b7c", "0b7c", false},
		{"TRIP:0b7c", "0b7c", false},
		{"https://transfers.example.com/t/0b7c", "0b7c", false},
		{"  0b7c  ", "0b7c", false},
		{"", "", true},
		{"https://transfers.example.com/t/", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := ScanCode(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTrigger)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
