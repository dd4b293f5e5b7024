package repository

import (
	"context"

	"transferledger/internal/domain"
)

// CompanyLedgerRepository defines the persistence operations for the company ledger.
type CompanyLedgerRepository interface {
	// Create appends an entry. Returns ErrDuplicate if the reference exists.
	Create(ctx context.Context, entry *domain.CompanyLedgerEntry) error

	// GetByReference retrieves an entry by reference.
	// Returns nil if no entry exists with the given reference.
	GetByReference(ctx context.Context, reference string) (*domain.CompanyLedgerEntry, error)

	// List retrieves entries, optionally filtered by kind (empty kind means all).
	List(ctx context.Context, kind domain.LedgerEntryKind) ([]*domain.CompanyLedgerEntry, error)

	// Summary aggregates revenue and expense totals.
	Summary(ctx context.Context) (*domain.LedgerSummary, error)
}
