package memory

import (
	"context"
	"sort"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// DriverAccountRepository is an in-memory implementation of repository.DriverAccountRepository.
type DriverAccountRepository struct {
	scope *scope
}

// Create adds a new account.
func (r *DriverAccountRepository) Create(ctx context.Context, account *domain.DriverAccount) error {
	created, err := r.CreateIfAbsent(ctx, account)
	if err != nil {
		return err
	}
	if !created {
		return repository.ErrDuplicate
	}
	return nil
}

// CreateIfAbsent inserts the account unless the key exists.
func (r *DriverAccountRepository) CreateIfAbsent(ctx context.Context, account *domain.DriverAccount) (bool, error) {
	created := false
	err := r.scope.run(func(d *dataset) error {
		if _, ok := d.accounts[account.Key]; ok {
			return nil
		}
		acc := *account
		d.accounts[account.Key] = &acc
		created = true
		return nil
	})
	return created, err
}

// GetByKey retrieves an account by key.
func (r *DriverAccountRepository) GetByKey(ctx context.Context, key domain.DriverKey) (*domain.DriverAccount, error) {
	var out *domain.DriverAccount
	err := r.scope.run(func(d *dataset) error {
		account, ok := d.accounts[key]
		if !ok {
			return repository.ErrNotFound
		}
		acc := *account
		out = &acc
		return nil
	})
	return out, err
}

// GetByKeyForUpdate retrieves an account. Units of work are serialized by the
// store, so the read is already exclusive.
func (r *DriverAccountRepository) GetByKeyForUpdate(ctx context.Context, key domain.DriverKey) (*domain.DriverAccount, error) {
	return r.GetByKey(ctx, key)
}

// GetAll retrieves all accounts ordered by key.
func (r *DriverAccountRepository) GetAll(ctx context.Context) ([]*domain.DriverAccount, error) {
	var out []*domain.DriverAccount
	err := r.scope.run(func(d *dataset) error {
		out = make([]*domain.DriverAccount, 0, len(d.accounts))
		for _, account := range d.accounts {
			acc := *account
			out = append(out, &acc)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, err
}

// UpdateProjection writes the balance and lifetime aggregates.
func (r *DriverAccountRepository) UpdateProjection(ctx context.Context, account *domain.DriverAccount) error {
	return r.scope.run(func(d *dataset) error {
		if _, ok := d.accounts[account.Key]; !ok {
			return repository.ErrNotFound
		}
		acc := *account
		d.accounts[account.Key] = &acc
		return nil
	})
}

// Ensure DriverAccountRepository implements repository.DriverAccountRepository.
var _ repository.DriverAccountRepository = (*DriverAccountRepository)(nil)
