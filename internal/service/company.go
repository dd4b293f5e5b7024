package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// CompanyLedger records recognized revenue and expense. The two are recognized
// at different moments: revenue when a non-cash trip completes or when cash is
// handed over, expense when a driver is actually paid.
type CompanyLedger struct {
	store  repository.Store
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewCompanyLedger creates a new CompanyLedger.
func NewCompanyLedger(store repository.Store, logger logrus.FieldLogger) *CompanyLedger {
	return &CompanyLedger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// RecordRevenue records trip revenue in its own unit of work. Recording the
// same trip twice returns the first entry.
func (c *CompanyLedger) RecordRevenue(ctx context.Context, tripID string, amount decimal.Decimal) (*domain.CompanyLedgerEntry, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var entry *domain.CompanyLedgerEntry
	err := c.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		entry, _, err = c.recordRevenue(ctx, repos, tripID, amount)
		return err
	})
	return entry, err
}

// RecordExpense records an expense row for a driver in its own unit of work.
// Payouts go through PayoutService, which also moves the driver balance.
func (c *CompanyLedger) RecordExpense(ctx context.Context, key domain.DriverKey, amount decimal.Decimal, description string) (*domain.CompanyLedgerEntry, error) {
	if key == "" {
		return nil, ErrInvalidDriverID
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	var entry *domain.CompanyLedgerEntry
	err := c.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		entry, _, err = c.record(ctx, repos, &domain.CompanyLedgerEntry{
			Kind:        domain.LedgerEntryExpense,
			Source:      domain.LedgerSourceDriverPayout,
			DriverKey:   key,
			Reference:   "expense:" + uuid.New().String(),
			Amount:      amount.Round(2),
			Description: description,
		})
		return err
	})
	return entry, err
}

// Entries lists ledger entries, optionally filtered by kind.
func (c *CompanyLedger) Entries(ctx context.Context, kind domain.LedgerEntryKind) ([]*domain.CompanyLedgerEntry, error) {
	if kind != "" && kind != domain.LedgerEntryRevenue && kind != domain.LedgerEntryExpense {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLedgerKind, kind)
	}
	return c.store.Repositories().Ledger.List(ctx, kind)
}

// Summary returns revenue, expense and net totals.
func (c *CompanyLedger) Summary(ctx context.Context) (*domain.LedgerSummary, error) {
	return c.store.Repositories().Ledger.Summary(ctx)
}

func (c *CompanyLedger) recordRevenue(ctx context.Context, repos repository.Repositories, tripID string, amount decimal.Decimal) (*domain.CompanyLedgerEntry, bool, error) {
	return c.record(ctx, repos, &domain.CompanyLedgerEntry{
		Kind:        domain.LedgerEntryRevenue,
		Source:      domain.LedgerSourceTripCompletion,
		TripID:      tripID,
		Reference:   domain.RevenueReference(tripID),
		Amount:      amount,
		Description: "trip revenue",
	})
}

// record appends entry unless its reference is already in the ledger, in
// which case the stored entry is returned with replayed set.
func (c *CompanyLedger) record(ctx context.Context, repos repository.Repositories, entry *domain.CompanyLedgerEntry) (*domain.CompanyLedgerEntry, bool, error) {
	existing, err := repos.Ledger.GetByReference(ctx, entry.Reference)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}

	entry.ID = uuid.New().String()
	entry.CreatedAt = c.now()
	if err := repos.Ledger.Create(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, false, fmt.Errorf("ledger reference %s: %w", entry.Reference, err)
		}
		return nil, false, fmt.Errorf("append ledger entry: %w", err)
	}
	return entry, false, nil
}

// payoutEntryReference and cashEntryReference scope driver references, which
// are unique per driver, to the company ledger, where they must be unique globally.
func payoutEntryReference(key domain.DriverKey, reference string) string {
	return "expense:" + key.String() + ":" + domain.PayoutReference(reference)
}

func cashEntryReference(key domain.DriverKey, reference string) string {
	return "revenue:" + key.String() + ":" + domain.CashReference(reference)
}
