package memory

import (
	"context"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// TransactionRepository is an in-memory implementation of repository.TransactionRepository.
type TransactionRepository struct {
	scope *scope
}

// Create appends a transaction.
func (r *TransactionRepository) Create(ctx context.Context, txn *domain.Transaction) error {
	return r.scope.run(func(d *dataset) error {
		for _, existing := range d.transactions {
			if existing.DriverKey == txn.DriverKey && existing.Reference == txn.Reference {
				return repository.ErrDuplicate
			}
			// One settlement transaction per trip across all drivers.
			if txn.TripID != "" && existing.TripID == txn.TripID &&
				existing.Reference == txn.Reference && txn.Reference == domain.TripReference(txn.TripID) {
				return repository.ErrDuplicate
			}
		}
		stored := *txn
		d.transactions = append(d.transactions, &stored)
		return nil
	})
}

// GetByReference retrieves a driver's transaction by reference, or nil.
func (r *TransactionRepository) GetByReference(ctx context.Context, key domain.DriverKey, reference string) (*domain.Transaction, error) {
	var out *domain.Transaction
	err := r.scope.run(func(d *dataset) error {
		for _, txn := range d.transactions {
			if txn.DriverKey == key && txn.Reference == reference {
				found := *txn
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

// ListByTripID retrieves every transaction linked to a trip.
func (r *TransactionRepository) ListByTripID(ctx context.Context, tripID string) ([]*domain.Transaction, error) {
	return r.filter(func(txn *domain.Transaction) bool { return txn.TripID == tripID })
}

// ListByDriver retrieves a driver's transactions in ledger order.
func (r *TransactionRepository) ListByDriver(ctx context.Context, key domain.DriverKey) ([]*domain.Transaction, error) {
	return r.filter(func(txn *domain.Transaction) bool { return txn.DriverKey == key })
}

func (r *TransactionRepository) filter(match func(txn *domain.Transaction) bool) ([]*domain.Transaction, error) {
	var out []*domain.Transaction
	err := r.scope.run(func(d *dataset) error {
		for _, txn := range d.transactions {
			if match(txn) {
				found := *txn
				out = append(out, &found)
			}
		}
		return nil
	})
	return out, err
}

// Ensure TransactionRepository implements repository.TransactionRepository.
var _ repository.TransactionRepository = (*TransactionRepository)(nil)
