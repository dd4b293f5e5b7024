package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"transferledger/internal/domain"
	"transferledger/internal/redis"
	"transferledger/internal/repository"
)

// DriverLedger maintains the per-driver transaction log and the balance
// projection derived from it.
type DriverLedger struct {
	store  repository.Store
	ids    *snowflake.Node
	cache  redis.BalanceCacheInterface
	region string
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewDriverLedger creates a new DriverLedger. cache may be nil.
func NewDriverLedger(
	store repository.Store,
	ids *snowflake.Node,
	cache redis.BalanceCacheInterface,
	defaultRegion string,
	logger logrus.FieldLogger,
) *DriverLedger {
	return &DriverLedger{
		store:  store,
		ids:    ids,
		cache:  cache,
		region: defaultRegion,
		logger: logger,
		now:    time.Now,
	}
}

// Metadata is descriptive data copied onto a transaction for audit display.
type Metadata struct {
	PaymentMethod domain.PaymentMethod
	Description   string
	CustomerName  string
	Route         string
	TriggerSource domain.TriggerSource
	ActorID       string
}

// posting is one ledger movement about to be appended.
type posting struct {
	Metadata
	Reference  string
	Kind       domain.TransactionKind
	Amount     decimal.Decimal
	TripID     string
	Commission decimal.Decimal
}

// ApplyTransaction appends the settlement transaction of a trip to an existing
// account in its own unit of work. A second call for the same trip returns the
// transaction written by the first.
func (l *DriverLedger) ApplyTransaction(ctx context.Context, key domain.DriverKey, delta decimal.Decimal, tripID string, meta Metadata) (*domain.Transaction, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var txn *domain.Transaction
	var account *domain.DriverAccount
	var replayed bool
	err := l.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		account, err = l.lockAccount(ctx, repos, key)
		if err != nil {
			return err
		}

		txn, replayed, err = l.apply(ctx, repos, account, posting{
			Metadata:  meta,
			Reference: domain.TripReference(tripID),
			Kind:      domain.SettlementKind(delta),
			Amount:    delta.Abs(),
			TripID:    tripID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if !replayed {
		l.refresh(ctx, account)
	}
	return txn, nil
}

// GetOrCreateAccount resolves the account of an assignment. Ad-hoc accounts are
// created on first use under their normalized phone key; affiliated accounts
// must already exist.
func (l *DriverLedger) GetOrCreateAccount(ctx context.Context, assignment *domain.DriverAssignment) (*domain.DriverAccount, error) {
	var account *domain.DriverAccount
	err := l.store.WithinTx(ctx, func(repos repository.Repositories) error {
		var err error
		account, err = l.accountFor(ctx, repos, assignment)
		return err
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

// RegisterDriverRequest contains the parameters for registering an affiliated driver.
type RegisterDriverRequest struct {
	DriverID       string
	Name           string
	Phone          string
	PlateNumber    string
	CommissionRate decimal.Decimal
}

// RegisterAffiliated opens the account of an affiliated driver.
func (l *DriverLedger) RegisterAffiliated(ctx context.Context, req RegisterDriverRequest) (*domain.DriverAccount, error) {
	driverID := strings.TrimSpace(req.DriverID)
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if err := domain.Affiliated(driverID).Validate(); err != nil {
		return nil, err
	}
	if err := validateCommissionRate(req.CommissionRate); err != nil {
		return nil, err
	}

	phone := req.Phone
	if strings.TrimSpace(phone) != "" {
		normalized, err := domain.NormalizePhone(phone, l.region)
		if err != nil {
			return nil, err
		}
		phone = normalized
	}

	now := l.now()
	account := &domain.DriverAccount{
		Key:            domain.AffiliatedKey(driverID),
		Kind:           domain.DriverKindAffiliated,
		DriverID:       driverID,
		Name:           req.Name,
		Phone:          phone,
		PlateNumber:    req.PlateNumber,
		CommissionRate: req.CommissionRate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := l.store.Repositories().Drivers.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDriverExists
		}
		return nil, err
	}

	l.logger.WithFields(logrus.Fields{
		"driver_key":      account.Key,
		"commission_rate": account.CommissionRate.String(),
	}).Info("driver registered")

	return account, nil
}

// ResolveKey parses a driver key received from a collaborator. Ad-hoc keys
// have their phone part normalized so that any spelling maps to one ledger.
func (l *DriverLedger) ResolveKey(raw string) (domain.DriverKey, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidDriverID
	}
	key := domain.DriverKey(raw)
	if key.IsAdHoc() {
		return domain.AdHocKey(key.Phone(), l.region)
	}
	return key, nil
}

// Account retrieves a driver account.
func (l *DriverLedger) Account(ctx context.Context, key domain.DriverKey) (*domain.DriverAccount, error) {
	account, err := l.store.Repositories().Drivers.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	return account, nil
}

// Accounts retrieves all driver accounts.
func (l *DriverLedger) Accounts(ctx context.Context) ([]*domain.DriverAccount, error) {
	return l.store.Repositories().Drivers.GetAll(ctx)
}

// Balance returns the balance projection of a driver. Positive means the
// company owes the driver.
func (l *DriverLedger) Balance(ctx context.Context, key domain.DriverKey) (decimal.Decimal, error) {
	if l.cache != nil {
		cached, err := l.cache.GetBalance(ctx, key.String())
		if err != nil {
			l.logger.WithError(err).WithField("driver_key", key).Warn("balance cache read failed")
		} else if cached != nil {
			return cached.Balance, nil
		}
	}

	account, err := l.Account(ctx, key)
	if err != nil {
		return decimal.Zero, err
	}

	if l.cache != nil {
		err := l.cache.SetBalance(ctx, &redis.CachedBalance{
			DriverKey: key.String(),
			Balance:   account.Balance,
			TripCount: account.TripCount,
			Version:   account.Version,
			CachedAt:  l.now(),
		})
		if err != nil {
			l.logger.WithError(err).WithField("driver_key", key).Warn("balance cache write failed")
		}
	}
	return account.Balance, nil
}

// History returns a driver's transactions in ledger order.
func (l *DriverLedger) History(ctx context.Context, key domain.DriverKey) ([]*domain.Transaction, error) {
	repos := l.store.Repositories()
	if _, err := repos.Drivers.GetByKey(ctx, key); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	return repos.Transactions.ListByDriver(ctx, key)
}

// Verify recomputes a driver's balance from the transaction log. The account
// row is locked while reading so that no write lands between the two reads.
// An inconsistent ledger returns the verification together with ErrLedgerInconsistent.
func (l *DriverLedger) Verify(ctx context.Context, key domain.DriverKey) (*domain.LedgerVerification, error) {
	var result *domain.LedgerVerification
	err := l.store.WithinTx(ctx, func(repos repository.Repositories) error {
		account, err := l.lockAccount(ctx, repos, key)
		if err != nil {
			return err
		}
		txns, err := repos.Transactions.ListByDriver(ctx, key)
		if err != nil {
			return err
		}

		sum := decimal.Zero
		for _, txn := range txns {
			sum = sum.Add(txn.Delta())
		}

		result = &domain.LedgerVerification{
			DriverKey:    key,
			Balance:      account.Balance,
			LogSum:       sum,
			Transactions: len(txns),
			Consistent:   sum.Equal(account.Balance),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !result.Consistent {
		l.logger.WithFields(logrus.Fields{
			"driver_key": key,
			"balance":    result.Balance.String(),
			"log_sum":    result.LogSum.String(),
		}).Error("driver ledger inconsistent")
		return result, ErrLedgerInconsistent
	}
	return result, nil
}

// accountFor resolves and locks the account for an assignment inside a unit of work.
func (l *DriverLedger) accountFor(ctx context.Context, repos repository.Repositories, assignment *domain.DriverAssignment) (*domain.DriverAccount, error) {
	if assignment == nil {
		return nil, ErrUnassigned
	}
	key, err := assignment.Key(l.region)
	if err != nil {
		return nil, err
	}

	if assignment.Kind == domain.DriverKindAdHoc {
		account := domain.NewAdHocAccount(key, *assignment.AdHoc, l.now())
		if _, err := repos.Drivers.CreateIfAbsent(ctx, account); err != nil {
			return nil, fmt.Errorf("create ad-hoc account: %w", err)
		}
	}

	return l.lockAccount(ctx, repos, key)
}

func (l *DriverLedger) lockAccount(ctx context.Context, repos repository.Repositories, key domain.DriverKey) (*domain.DriverAccount, error) {
	account, err := repos.Drivers.GetByKeyForUpdate(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	return account, nil
}

// apply appends p to the locked account and updates the projection. If the
// driver already holds a transaction with the same reference, that
// transaction is returned with replayed set and nothing is written.
func (l *DriverLedger) apply(ctx context.Context, repos repository.Repositories, account *domain.DriverAccount, p posting) (*domain.Transaction, bool, error) {
	existing, err := repos.Transactions.GetByReference(ctx, account.Key, p.Reference)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, true, nil
	}
	if p.Reference == domain.TripReference(p.TripID) {
		if err := l.checkTripUnsettled(ctx, repos, p.TripID); err != nil {
			return nil, false, err
		}
	}

	now := l.now()
	txn := &domain.Transaction{
		ID:            l.ids.Generate().Int64(),
		DriverKey:     account.Key,
		Kind:          p.Kind,
		Amount:        p.Amount,
		BalanceBefore: account.Balance,
		Reference:     p.Reference,
		TripID:        p.TripID,
		PaymentMethod: p.PaymentMethod,
		Description:   p.Description,
		CustomerName:  p.CustomerName,
		Route:         p.Route,
		TriggerSource: p.TriggerSource,
		ActorID:       p.ActorID,
		CreatedAt:     now,
	}
	txn.BalanceAfter = account.Balance.Add(txn.Delta())

	if err := repos.Transactions.Create(ctx, txn); err != nil {
		return nil, false, fmt.Errorf("append transaction: %w", err)
	}

	account.Balance = txn.BalanceAfter
	account.Version++
	account.UpdatedAt = now
	if p.TripID != "" {
		account.TripCount++
		switch p.PaymentMethod {
		case domain.PaymentMethodCash:
			account.CashTrips++
		case domain.PaymentMethodCard:
			account.CardTrips++
		case domain.PaymentMethodBankTransfer:
			account.TransferTrips++
		}
		account.TotalCommission = account.TotalCommission.Add(p.Commission)
	}
	if p.Kind == domain.TransactionPayout {
		account.TotalPayout = account.TotalPayout.Add(p.Amount)
	}

	if err := repos.Drivers.UpdateProjection(ctx, account); err != nil {
		return nil, false, fmt.Errorf("update balance: %w", err)
	}
	return txn, false, nil
}

// checkTripUnsettled fails when any driver already holds the settlement
// transaction of tripID. A trip settles for exactly one driver.
func (l *DriverLedger) checkTripUnsettled(ctx context.Context, repos repository.Repositories, tripID string) error {
	txns, err := repos.Transactions.ListByTripID(ctx, tripID)
	if err != nil {
		return err
	}
	for _, txn := range txns {
		if txn.Reference == domain.TripReference(tripID) {
			return fmt.Errorf("%w: trip %s settled for %s", ErrTripSettledForOtherDriver, tripID, txn.DriverKey)
		}
	}
	return nil
}

// refresh writes the projection committed for account to the cache. The
// version guard keeps a slower read-through fill from overwriting it. If the
// write fails the entry is dropped instead.
func (l *DriverLedger) refresh(ctx context.Context, account *domain.DriverAccount) {
	if l.cache == nil || account == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := l.cache.SetBalance(ctx, &redis.CachedBalance{
		DriverKey: account.Key.String(),
		Balance:   account.Balance,
		TripCount: account.TripCount,
		Version:   account.Version,
		CachedAt:  l.now(),
	})
	if err == nil {
		return
	}

	l.logger.WithError(err).WithField("driver_key", account.Key).Warn("balance cache refresh failed")
	if err := l.cache.InvalidateBalance(ctx, account.Key.String()); err != nil {
		l.logger.WithError(err).WithField("driver_key", account.Key).Warn("balance cache invalidation failed")
	}
}
