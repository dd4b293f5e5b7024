// Package memory is an in-process implementation of the repository interfaces.
// A unit of work runs against a private copy of the data set that replaces the
// live one only when the work succeeds, so a failed unit leaves no trace.
package memory

import (
	"context"
	"sync"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

type dataset struct {
	trips        map[string]*domain.Trip
	accounts     map[domain.DriverKey]*domain.DriverAccount
	transactions []*domain.Transaction
	entries      []*domain.CompanyLedgerEntry
}

func newDataset() *dataset {
	return &dataset{
		trips:    make(map[string]*domain.Trip),
		accounts: make(map[domain.DriverKey]*domain.DriverAccount),
	}
}

// clone copies every mutable record. Transactions and ledger entries are
// immutable once stored, so their pointers are shared.
func (d *dataset) clone() *dataset {
	c := &dataset{
		trips:        make(map[string]*domain.Trip, len(d.trips)),
		accounts:     make(map[domain.DriverKey]*domain.DriverAccount, len(d.accounts)),
		transactions: append([]*domain.Transaction(nil), d.transactions...),
		entries:      append([]*domain.CompanyLedgerEntry(nil), d.entries...),
	}
	for id, trip := range d.trips {
		c.trips[id] = copyTrip(trip)
	}
	for key, account := range d.accounts {
		acc := *account
		c.accounts[key] = &acc
	}
	return c
}

// Store is a mutex-guarded in-memory repository.Store.
type Store struct {
	mu   sync.Mutex
	data *dataset
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: newDataset()}
}

// Repositories returns repositories that lock the store for each call.
func (s *Store) Repositories() repository.Repositories {
	return reposFor(&scope{store: s})
}

// WithinTx runs fn against a private copy of the data and publishes the copy
// only if fn succeeds. Units of work are fully serialized.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(reposFor(&scope{data: working})); err != nil {
		return err
	}

	// A unit of work whose deadline passed must not commit.
	if err := ctx.Err(); err != nil {
		return err
	}

	s.data = working
	return nil
}

// scope resolves which data set a repository call operates on.
type scope struct {
	store *Store
	data  *dataset
}

func (sc *scope) run(fn func(d *dataset) error) error {
	if sc.data != nil {
		return fn(sc.data)
	}
	sc.store.mu.Lock()
	defer sc.store.mu.Unlock()
	return fn(sc.store.data)
}

func reposFor(sc *scope) repository.Repositories {
	return repository.Repositories{
		Trips:        &TripRepository{scope: sc},
		Drivers:      &DriverAccountRepository{scope: sc},
		Transactions: &TransactionRepository{scope: sc},
		Ledger:       &CompanyLedgerRepository{scope: sc},
	}
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
