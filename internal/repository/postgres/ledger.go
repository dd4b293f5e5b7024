package postgres

import (
	"context"
	"database/sql"
	"errors"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// CompanyLedgerRepository is a PostgreSQL implementation of repository.CompanyLedgerRepository.
type CompanyLedgerRepository struct {
	q Querier
}

// NewCompanyLedgerRepository creates a new PostgreSQL company ledger repository.
func NewCompanyLedgerRepository(db *sql.DB) *CompanyLedgerRepository {
	return &CompanyLedgerRepository{q: db}
}

// NewCompanyLedgerRepositoryWithTx creates a company ledger repository using a transaction.
func NewCompanyLedgerRepositoryWithTx(tx *sql.Tx) *CompanyLedgerRepository {
	return &CompanyLedgerRepository{q: tx}
}

const entryColumns = `
	id, kind, source, COALESCE(trip_id, ''), COALESCE(driver_key, ''), reference, amount, description, created_at`

func scanEntry(row rowScanner) (*domain.CompanyLedgerEntry, error) {
	var entry domain.CompanyLedgerEntry
	err := row.Scan(
		&entry.ID,
		&entry.Kind,
		&entry.Source,
		&entry.TripID,
		&entry.DriverKey,
		&entry.Reference,
		&entry.Amount,
		&entry.Description,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create appends an entry.
func (r *CompanyLedgerRepository) Create(ctx context.Context, entry *domain.CompanyLedgerEntry) error {
	query := `
		INSERT INTO company_ledger (id, kind, source, trip_id, driver_key, reference, amount, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.q.ExecContext(ctx, query,
		entry.ID,
		entry.Kind,
		entry.Source,
		nullString(entry.TripID),
		nullString(string(entry.DriverKey)),
		entry.Reference,
		entry.Amount,
		entry.Description,
		entry.CreatedAt,
	)
	return translateError(err)
}

// GetByReference retrieves an entry by reference.
// Returns nil if no entry exists with the given reference.
func (r *CompanyLedgerRepository) GetByReference(ctx context.Context, reference string) (*domain.CompanyLedgerEntry, error) {
	entry, err := scanEntry(r.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM company_ledger WHERE reference = $1`, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

// List retrieves entries, optionally filtered by kind.
func (r *CompanyLedgerRepository) List(ctx context.Context, kind domain.LedgerEntryKind) ([]*domain.CompanyLedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM company_ledger ORDER BY created_at, id`
	var args []any
	if kind != "" {
		query = `SELECT ` + entryColumns + ` FROM company_ledger WHERE kind = $1 ORDER BY created_at, id`
		args = append(args, kind)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.CompanyLedgerEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Summary aggregates revenue and expense totals.
func (r *CompanyLedgerRepository) Summary(ctx context.Context) (*domain.LedgerSummary, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = $1), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = $2), 0),
			COUNT(*)
		FROM company_ledger
	`

	var summary domain.LedgerSummary
	err := r.q.QueryRowContext(ctx, query, domain.LedgerEntryRevenue, domain.LedgerEntryExpense).Scan(
		&summary.Revenue,
		&summary.Expense,
		&summary.Entries,
	)
	if err != nil {
		return nil, err
	}
	summary.Net = summary.Revenue.Sub(summary.Expense)
	return &summary, nil
}

// Ensure CompanyLedgerRepository implements repository.CompanyLedgerRepository.
var _ repository.CompanyLedgerRepository = (*CompanyLedgerRepository)(nil)
