package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"transferledger/internal/domain"
	"transferledger/internal/events"
	"transferledger/internal/redis"
	"transferledger/internal/repository"
)

// PayoutService records money moving between the company and a driver after
// trips are settled: payouts to the driver and cash handed over by the driver.
// Each movement writes a driver transaction and a company ledger row in one
// unit of work and is idempotent on the caller's reference.
type PayoutService struct {
	store     repository.Store
	ledger    *DriverLedger
	company   *CompanyLedger
	locks     redis.LockStoreInterface
	publisher events.Publisher
	logger    logrus.FieldLogger
	cfg       CompletionConfig
}

// NewPayoutService creates a new PayoutService. locks and publisher may be nil.
func NewPayoutService(
	store repository.Store,
	ledger *DriverLedger,
	company *CompanyLedger,
	locks redis.LockStoreInterface,
	publisher events.Publisher,
	logger logrus.FieldLogger,
	cfg CompletionConfig,
) *PayoutService {
	if cfg.PersistenceTimeout <= 0 {
		cfg.PersistenceTimeout = 5 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &PayoutService{
		store:     store,
		ledger:    ledger,
		company:   company,
		locks:     locks,
		publisher: publisher,
		logger:    logger,
		cfg:       cfg,
	}
}

// MovementRequest contains the parameters for a payout or a cash handover.
// Reference is supplied by the caller and dedupes retries.
type MovementRequest struct {
	DriverKey   domain.DriverKey
	Amount      decimal.Decimal
	Description string
	Reference   string
}

// movement describes how one kind of money movement is booked.
type movement struct {
	txnKind     domain.TransactionKind
	txnRef      func(string) string
	entryKind   domain.LedgerEntryKind
	entrySource domain.LedgerSource
	entryRef    func(domain.DriverKey, string) string
	event       string
	logMessage  string
}

var (
	payoutMovement = movement{
		txnKind:     domain.TransactionPayout,
		txnRef:      domain.PayoutReference,
		entryKind:   domain.LedgerEntryExpense,
		entrySource: domain.LedgerSourceDriverPayout,
		entryRef:    payoutEntryReference,
		event:       events.DriverPayout,
		logMessage:  "driver payout recorded",
	}
	cashMovement = movement{
		txnKind:     domain.TransactionCashHandover,
		txnRef:      domain.CashReference,
		entryKind:   domain.LedgerEntryRevenue,
		entrySource: domain.LedgerSourceCashReconciliation,
		entryRef:    cashEntryReference,
		event:       events.CashReconciled,
		logMessage:  "cash reconciled",
	}
)

// RecordPayout pays a driver. The driver balance goes down by the amount and
// the company recognizes the amount as expense.
func (s *PayoutService) RecordPayout(ctx context.Context, req MovementRequest) (*domain.Payout, error) {
	return s.record(ctx, req, payoutMovement)
}

// ReconcileCash records cash a driver handed over to the company. The driver
// balance goes up by the amount and the company recognizes the cash revenue
// that was deferred at completion.
func (s *PayoutService) ReconcileCash(ctx context.Context, req MovementRequest) (*domain.Payout, error) {
	return s.record(ctx, req, cashMovement)
}

func (s *PayoutService) record(ctx context.Context, req MovementRequest, m movement) (*domain.Payout, error) {
	if req.DriverKey == "" {
		return nil, ErrInvalidDriverID
	}
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		return nil, ErrInvalidReference
	}
	amount := req.Amount.Round(2)

	ctx, cancel := context.WithTimeout(ctx, s.cfg.PersistenceTimeout)
	defer cancel()

	release := lockDriver(ctx, s.locks, s.logger, s.cfg.LockTTL, req.DriverKey)
	defer release()

	result := &domain.Payout{
		Reference:   reference,
		DriverKey:   req.DriverKey,
		Amount:      amount,
		Description: req.Description,
	}

	var committed *domain.DriverAccount
	err := s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		account, err := s.ledger.lockAccount(ctx, repos, req.DriverKey)
		if err != nil {
			return err
		}

		existing, err := repos.Transactions.GetByReference(ctx, req.DriverKey, m.txnRef(reference))
		if err != nil {
			return err
		}
		if existing != nil && !existing.Amount.Equal(amount) {
			return ErrDuplicatePayout
		}

		txn, replayed, err := s.ledger.apply(ctx, repos, account, posting{
			Metadata:  Metadata{Description: req.Description},
			Reference: m.txnRef(reference),
			Kind:      m.txnKind,
			Amount:    amount,
		})
		if err != nil {
			return err
		}

		entry, _, err := s.company.record(ctx, repos, &domain.CompanyLedgerEntry{
			Kind:        m.entryKind,
			Source:      m.entrySource,
			DriverKey:   req.DriverKey,
			Reference:   m.entryRef(req.DriverKey, reference),
			Amount:      amount,
			Description: req.Description,
		})
		if err != nil {
			return err
		}

		committed = account
		result.TransactionID = txn.ID
		result.EntryID = entry.ID
		result.BalanceAfter = txn.BalanceAfter
		result.CreatedAt = txn.CreatedAt
		result.Replayed = replayed
		if replayed {
			result.Description = txn.Description
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDriverNotFound) || errors.Is(err, ErrDuplicatePayout) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrLedgerWriteFailed, err)
	}

	if result.Replayed {
		return result, nil
	}

	s.ledger.refresh(ctx, committed)

	s.logger.WithFields(logrus.Fields{
		"driver_key": req.DriverKey,
		"reference":  reference,
		"amount":     amount.String(),
		"balance":    result.BalanceAfter.String(),
	}).Info(m.logMessage)

	publish(ctx, s.publisher, s.logger, m.event, events.LedgerMovementPayload{
		DriverKey:    req.DriverKey.String(),
		Reference:    reference,
		Amount:       amount,
		BalanceAfter: result.BalanceAfter,
		Description:  req.Description,
	})

	return result, nil
}
