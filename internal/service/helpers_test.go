package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"transferledger/internal/domain"
	"transferledger/internal/events"
	"transferledger/internal/redis"
	"transferledger/internal/repository"
	"transferledger/internal/repository/memory"
)

// testEnv wires the services over an in-memory store.
type testEnv struct {
	store     repository.Store
	ledger    *DriverLedger
	company   *CompanyLedger
	gateway   *CompletionGateway
	trips     *TripService
	payouts   *PayoutService
	publisher *mockPublisher
	cache     *mockBalanceCache
	logs      *test.Hook
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithStore(t, memory.NewStore())
}

func newTestEnvWithStore(t *testing.T, store repository.Store) *testEnv {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	publisher := newMockPublisher()
	cache := newMockBalanceCache()
	cfg := CompletionConfig{PersistenceTimeout: 5 * time.Second, LockTTL: time.Second}

	ledger := NewDriverLedger(store, node, cache, "TR", logger)
	company := NewCompanyLedger(store, logger)

	return &testEnv{
		store:     store,
		ledger:    ledger,
		company:   company,
		gateway:   NewCompletionGateway(store, ledger, company, newMockLockStore(), publisher, logger, cfg),
		trips:     NewTripService(store, ledger, "TRY", logger),
		payouts:   NewPayoutService(store, ledger, company, nil, publisher, logger, cfg),
		publisher: publisher,
		cache:     cache,
		logs:      hook,
	}
}

func (e *testEnv) registerDriver(t *testing.T, id string, rate int64) {
	t.Helper()
	_, err := e.ledger.RegisterAffiliated(context.Background(), RegisterDriverRequest{
		DriverID:       id,
		Name:           "Driver " + id,
		CommissionRate: decimal.NewFromInt(rate),
	})
	require.NoError(t, err)
}

// assignedTrip creates a trip and assigns it.
func (e *testEnv) assignedTrip(t *testing.T, price string, method domain.PaymentMethod, assignment *domain.DriverAssignment) *domain.Trip {
	t.Helper()
	ctx := context.Background()

	trip, err := e.trips.CreateTrip(ctx, CreateTripRequest{
		TotalPrice:     decimal.RequireFromString(price),
		PaymentMethod:  string(method),
		CustomerName:   "Ayse Yilmaz",
		PickupAddress:  "IST Airport",
		DropoffAddress: "Taksim",
	})
	require.NoError(t, err)

	trip, err = e.trips.AssignDriver(ctx, trip.ID, assignment)
	require.NoError(t, err)
	return trip
}

// storedTrip writes a trip directly, bypassing TripService validation.
func (e *testEnv) storedTrip(t *testing.T, trip *domain.Trip) {
	t.Helper()
	if trip.CreatedAt.IsZero() {
		trip.CreatedAt = time.Now()
	}
	require.NoError(t, e.store.Repositories().Trips.Create(context.Background(), trip))
}

func (e *testEnv) tripTransactions(t *testing.T, tripID string) []*domain.Transaction {
	t.Helper()
	txns, err := e.store.Repositories().Transactions.ListByTripID(context.Background(), tripID)
	require.NoError(t, err)
	return txns
}

func (e *testEnv) account(t *testing.T, key domain.DriverKey) *domain.DriverAccount {
	t.Helper()
	account, err := e.store.Repositories().Drivers.GetByKey(context.Background(), key)
	require.NoError(t, err)
	return account
}

func adHocDriver(phone, fee string) *domain.DriverAssignment {
	return domain.AdHoc(domain.AdHocDriver{
		Name:        "Mehmet",
		Phone:       phone,
		PlateNumber: "34 ABC 123",
		FixedFee:    decimal.RequireFromString(fee),
	})
}

func qrTrigger() domain.Trigger {
	return domain.Trigger{Source: domain.TriggerQRScan, ActorID: "device-1"}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// mockPublisher records published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{}
}

func (m *mockPublisher) Publish(ctx context.Context, event events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, event)
	return nil
}

func (m *mockPublisher) types() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// mockBalanceCache is an in-memory redis.BalanceCacheInterface with call
// counters. Like the Redis store it keeps the newest version of an entry.
type mockBalanceCache struct {
	mu              sync.Mutex
	balances        map[string]*redis.CachedBalance
	GetCalls        int
	InvalidateCalls int
	GetErr          error
	SetErr          error

	// beforeSet runs once, before the next SetBalance stores anything.
	beforeSet func()
}

func newMockBalanceCache() *mockBalanceCache {
	return &mockBalanceCache{balances: make(map[string]*redis.CachedBalance)}
}

func (m *mockBalanceCache) GetBalance(ctx context.Context, driverKey string) (*redis.CachedBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	cached, ok := m.balances[driverKey]
	if !ok {
		return nil, nil
	}
	c := *cached
	return &c, nil
}

func (m *mockBalanceCache) SetBalance(ctx context.Context, balance *redis.CachedBalance) error {
	m.mu.Lock()
	before := m.beforeSet
	m.beforeSet = nil
	m.mu.Unlock()
	if before != nil {
		before()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SetErr != nil {
		return m.SetErr
	}
	if current, ok := m.balances[balance.DriverKey]; ok && current.Version >= balance.Version {
		return nil
	}
	c := *balance
	m.balances[balance.DriverKey] = &c
	return nil
}

func (m *mockBalanceCache) cached(driverKey string) *redis.CachedBalance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[driverKey]
}

func (m *mockBalanceCache) InvalidateBalance(ctx context.Context, driverKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InvalidateCalls++
	delete(m.balances, driverKey)
	return nil
}

// mockLockStore is a process-local redis.LockStoreInterface.
type mockLockStore struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newMockLockStore() *mockLockStore {
	return &mockLockStore{locks: make(map[string]*sync.Mutex)}
}

func (m *mockLockStore) AcquireDriverLock(ctx context.Context, driverKey string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	l, ok := m.locks[driverKey]
	if !ok {
		l = &sync.Mutex{}
		m.locks[driverKey] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

// failingStore wraps a store and injects an error into company ledger writes
// made inside a unit of work.
type failingStore struct {
	*memory.Store
	ledgerErr error
}

func (s *failingStore) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return s.Store.WithinTx(ctx, func(repos repository.Repositories) error {
		repos.Ledger = &failingLedgerRepo{CompanyLedgerRepository: repos.Ledger, err: s.ledgerErr}
		return fn(repos)
	})
}

type failingLedgerRepo struct {
	repository.CompanyLedgerRepository
	err error
}

func (r *failingLedgerRepo) Create(ctx context.Context, entry *domain.CompanyLedgerEntry) error {
	return r.err
}

// interleavingStore runs a one-shot hook right before the next unit of work
// starts, standing in for a writer that lands between a read and a commit.
type interleavingStore struct {
	*memory.Store
	mu     sync.Mutex
	before func()
}

func (s *interleavingStore) beforeNextTx(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.before = fn
}

func (s *interleavingStore) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	s.mu.Lock()
	before := s.before
	s.before = nil
	s.mu.Unlock()

	if before != nil {
		before()
	}
	return s.Store.WithinTx(ctx, fn)
}

var errInjected = errors.New("injected failure")

// Ensure mocks implement interfaces.
var (
	_ events.Publisher            = (*mockPublisher)(nil)
	_ redis.BalanceCacheInterface = (*mockBalanceCache)(nil)
	_ redis.LockStoreInterface    = (*mockLockStore)(nil)
	_ repository.Store            = (*failingStore)(nil)
	_ repository.Store            = (*interleavingStore)(nil)
)
