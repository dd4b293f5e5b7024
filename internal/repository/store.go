package repository

import "context"

// Repositories groups the repositories that share one unit of work.
type Repositories struct {
	Trips        TripRepository
	Drivers      DriverAccountRepository
	Transactions TransactionRepository
	Ledger       CompanyLedgerRepository
}

// Store hands out repositories, either standalone or bound to a unit of work.
type Store interface {
	// Repositories returns repositories that run each call on its own.
	Repositories() Repositories

	// WithinTx runs fn with repositories bound to a single transaction. The
	// transaction commits if fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
