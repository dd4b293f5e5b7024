package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// CompanyLedgerRepository is an in-memory implementation of repository.CompanyLedgerRepository.
type CompanyLedgerRepository struct {
	scope *scope
}

// Create appends an entry.
func (r *CompanyLedgerRepository) Create(ctx context.Context, entry *domain.CompanyLedgerEntry) error {
	return r.scope.run(func(d *dataset) error {
		for _, existing := range d.entries {
			if existing.Reference == entry.Reference {
				return repository.ErrDuplicate
			}
		}
		stored := *entry
		d.entries = append(d.entries, &stored)
		return nil
	})
}

// GetByReference retrieves an entry by reference, or nil.
func (r *CompanyLedgerRepository) GetByReference(ctx context.Context, reference string) (*domain.CompanyLedgerEntry, error) {
	var out *domain.CompanyLedgerEntry
	err := r.scope.run(func(d *dataset) error {
		for _, entry := range d.entries {
			if entry.Reference == reference {
				found := *entry
				out = &found
				return nil
			}
		}
		return nil
	})
	return out, err
}

// List retrieves entries in insertion order, optionally filtered by kind.
func (r *CompanyLedgerRepository) List(ctx context.Context, kind domain.LedgerEntryKind) ([]*domain.CompanyLedgerEntry, error) {
	var out []*domain.CompanyLedgerEntry
	err := r.scope.run(func(d *dataset) error {
		for _, entry := range d.entries {
			if kind == "" || entry.Kind == kind {
				found := *entry
				out = append(out, &found)
			}
		}
		return nil
	})
	return out, err
}

// Summary aggregates revenue and expense totals.
func (r *CompanyLedgerRepository) Summary(ctx context.Context) (*domain.LedgerSummary, error) {
	summary := &domain.LedgerSummary{Revenue: decimal.Zero, Expense: decimal.Zero}
	err := r.scope.run(func(d *dataset) error {
		for _, entry := range d.entries {
			switch entry.Kind {
			case domain.LedgerEntryRevenue:
				summary.Revenue = summary.Revenue.Add(entry.Amount)
			case domain.LedgerEntryExpense:
				summary.Expense = summary.Expense.Add(entry.Amount)
			}
			summary.Entries++
		}
		return nil
	})
	summary.Net = summary.Revenue.Sub(summary.Expense)
	return summary, err
}

// Ensure CompanyLedgerRepository implements repository.CompanyLedgerRepository.
var _ repository.CompanyLedgerRepository = (*CompanyLedgerRepository)(nil)
