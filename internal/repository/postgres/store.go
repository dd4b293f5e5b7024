package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"transferledger/internal/repository"
)

// Store is a PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
}

// NewStore creates a new PostgreSQL store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repositories returns repositories bound to the connection pool.
func (s *Store) Repositories() repository.Repositories {
	return repository.Repositories{
		Trips:        NewTripRepository(s.db),
		Drivers:      NewDriverAccountRepository(s.db),
		Transactions: NewTransactionRepository(s.db),
		Ledger:       NewCompanyLedgerRepository(s.db),
	}
}

// WithinTx runs fn with transaction-scoped repositories. Conditional status
// writes and SELECT ... FOR UPDATE on driver accounts give the required
// per-trip and per-driver serialization under READ COMMITTED.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	// Create transaction-scoped repositories.
	err = fn(repository.Repositories{
		Trips:        NewTripRepositoryWithTx(tx),
		Drivers:      NewDriverAccountRepositoryWithTx(tx),
		Transactions: NewTransactionRepositoryWithTx(tx),
		Ledger:       NewCompanyLedgerRepositoryWithTx(tx),
	})
	if err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Ensure Store implements repository.Store.
var _ repository.Store = (*Store)(nil)
