package repository

import (
	"context"

	"transferledger/internal/domain"
)

// DriverAccountRepository defines the persistence operations for driver accounts.
type DriverAccountRepository interface {
	// Create adds a new account. Returns ErrDuplicate if the key exists.
	Create(ctx context.Context, account *domain.DriverAccount) error

	// CreateIfAbsent inserts the account unless one with the same key exists.
	CreateIfAbsent(ctx context.Context, account *domain.DriverAccount) (bool, error)

	// GetByKey retrieves an account by driver key.
	GetByKey(ctx context.Context, key domain.DriverKey) (*domain.DriverAccount, error)

	// GetByKeyForUpdate retrieves an account and locks it until the enclosing
	// unit of work ends. Must be called within Store.WithinTx.
	GetByKeyForUpdate(ctx context.Context, key domain.DriverKey) (*domain.DriverAccount, error)

	// GetAll retrieves all accounts.
	GetAll(ctx context.Context) ([]*domain.DriverAccount, error)

	// UpdateProjection writes the balance and lifetime aggregates.
	UpdateProjection(ctx context.Context, account *domain.DriverAccount) error
}

// TransactionRepository defines the persistence operations for driver ledger transactions.
// Transactions are append-only: there is no update or delete.
type TransactionRepository interface {
	// Create appends a transaction. Returns ErrDuplicate if the driver already
	// has a transaction with the same reference.
	Create(ctx context.Context, txn *domain.Transaction) error

	// GetByReference retrieves a driver's transaction by reference.
	// Returns nil if no transaction exists with the given reference.
	GetByReference(ctx context.Context, key domain.DriverKey, reference string) (*domain.Transaction, error)

	// ListByTripID retrieves every transaction linked to a trip.
	ListByTripID(ctx context.Context, tripID string) ([]*domain.Transaction, error)

	// ListByDriver retrieves a driver's transactions in ledger order.
	ListByDriver(ctx context.Context, key domain.DriverKey) ([]*domain.Transaction, error)
}
