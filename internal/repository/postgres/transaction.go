package postgres

import (
	"context"
	"database/sql"
	"errors"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// TransactionRepository is a PostgreSQL implementation of repository.TransactionRepository.
type TransactionRepository struct {
	q Querier
}

// NewTransactionRepository creates a new PostgreSQL transaction repository.
func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{q: db}
}

// NewTransactionRepositoryWithTx creates a transaction repository using a transaction.
func NewTransactionRepositoryWithTx(tx *sql.Tx) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

const transactionColumns = `
	id, driver_key, kind, amount, balance_before, balance_after, reference,
	COALESCE(trip_id, ''), COALESCE(payment_method, ''), description, customer_name, route,
	trigger_source, actor_id, created_at`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var txn domain.Transaction
	err := row.Scan(
		&txn.ID,
		&txn.DriverKey,
		&txn.Kind,
		&txn.Amount,
		&txn.BalanceBefore,
		&txn.BalanceAfter,
		&txn.Reference,
		&txn.TripID,
		&txn.PaymentMethod,
		&txn.Description,
		&txn.CustomerName,
		&txn.Route,
		&txn.TriggerSource,
		&txn.ActorID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

// Create appends a transaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	query := `
		INSERT INTO driver_transactions (
			id, driver_key, kind, amount, balance_before, balance_after, reference,
			trip_id, payment_method, description, customer_name, route, trigger_source, actor_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.q.ExecContext(ctx, query,
		txn.ID,
		txn.DriverKey,
		txn.Kind,
		txn.Amount,
		txn.BalanceBefore,
		txn.BalanceAfter,
		txn.Reference,
		nullString(txn.TripID),
		nullString(string(txn.PaymentMethod)),
		txn.Description,
		txn.CustomerName,
		txn.Route,
		txn.TriggerSource,
		txn.ActorID,
		txn.CreatedAt,
	)
	return translateError(err)
}

// GetByReference retrieves a driver's transaction by reference.
// Returns nil if no transaction exists with the given reference.
func (r *TransactionRepository) GetByReference(ctx context.Context, key domain.DriverKey, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM driver_transactions WHERE driver_key = $1 AND reference = $2`

	txn, err := scanTransaction(r.q.QueryRowContext(ctx, query, key, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return txn, nil
}

// ListByTripID retrieves every transaction linked to a trip.
func (r *TransactionRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM driver_transactions WHERE trip_id = $1 ORDER BY id`, tripID)
}

// ListByDriver retrieves a driver's transactions in ledger order.
func (r *TransactionRepository) ListByDriver(ctx context.Context, key domain.DriverKey) ([]*domain.Transaction, error) {
	return r.list(ctx, `SELECT `+transactionColumns+` FROM driver_transactions WHERE driver_key = $1 ORDER BY id`, key)
}

func (r *TransactionRepository) list(ctx context.Context, query string, arg any) ([]*domain.Transaction, error) {
	rows, err := r.q.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []*domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, txn)
	}
	return txns, rows.Err()
}

// Ensure TransactionRepository implements repository.TransactionRepository.
var _ repository.TransactionRepository = (*TransactionRepository)(nil)
