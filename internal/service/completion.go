package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"transferledger/internal/domain"
	"transferledger/internal/events"
	"transferledger/internal/redis"
	"transferledger/internal/repository"
)

// CompletionConfig bounds the work done by one completion.
type CompletionConfig struct {
	// PersistenceTimeout bounds the whole completion, retries included.
	PersistenceTimeout time.Duration
	// LockTTL is the lifetime of the per-driver distributed lock.
	LockTTL time.Duration
}

// CompletionGateway is the single entry point through which every trigger
// completes a trip. It moves the trip to COMPLETED, appends the driver ledger
// transaction and records company revenue in one unit of work.
type CompletionGateway struct {
	store     repository.Store
	ledger    *DriverLedger
	company   *CompanyLedger
	locks     redis.LockStoreInterface
	publisher events.Publisher
	validate  *validator.Validate
	logger    logrus.FieldLogger
	cfg       CompletionConfig
	now       func() time.Time
}

// NewCompletionGateway creates a new CompletionGateway. locks and publisher may be nil.
func NewCompletionGateway(
	store repository.Store,
	ledger *DriverLedger,
	company *CompanyLedger,
	locks redis.LockStoreInterface,
	publisher events.Publisher,
	logger logrus.FieldLogger,
	cfg CompletionConfig,
) *CompletionGateway {
	if cfg.PersistenceTimeout <= 0 {
		cfg.PersistenceTimeout = 5 * time.Second
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Second
	}
	return &CompletionGateway{
		store:     store,
		ledger:    ledger,
		company:   company,
		locks:     locks,
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CompleteTrip completes and settles a trip.
//
// A trip that is already completed yields the stored settlement together with
// ErrAlreadyCompleted; callers treat that as success. Losing the conditional
// status write to a concurrent trigger is retried once, which normally
// resolves to ErrAlreadyCompleted. On any other error nothing was written.
func (g *CompletionGateway) CompleteTrip(ctx context.Context, tripID string, trigger domain.Trigger) (*domain.SettlementSummary, error) {
	if strings.TrimSpace(tripID) == "" {
		return nil, ErrInvalidTripID
	}
	if err := g.validate.Struct(trigger); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}

	ctx, cancel := context.WithTimeout(ctx, g.cfg.PersistenceTimeout)
	defer cancel()

	summary, err := g.complete(ctx, tripID, trigger)
	if errors.Is(err, ErrConcurrentModification) {
		g.logger.WithFields(logrus.Fields{
			"trip_id":        tripID,
			"trigger_source": trigger.Source,
		}).Info("completion lost race, retrying")
		summary, err = g.complete(ctx, tripID, trigger)
	}
	return summary, err
}

// ScanCode resolves the trip id carried by a QR code. Codes are either the bare
// trip id, "trip:<id>", or a URL whose last path segment is the trip id.
func ScanCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if i := strings.LastIndex(code, "/"); i >= 0 {
		code = code[i+1:]
	}
	if len(code) > len("trip:") && strings.EqualFold(code[:len("trip:")], "trip:") {
		code = code[len("trip:"):]
	}
	if code == "" {
		return "", fmt.Errorf("%w: empty scan code", ErrInvalidTrigger)
	}
	return code, nil
}

func (g *CompletionGateway) complete(ctx context.Context, tripID string, trigger domain.Trigger) (*domain.SettlementSummary, error) {
	trip, err := g.store.Repositories().Trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("load trip: %w", err)
	}

	if trip.IsSettled() {
		summary, err := g.settledSummary(ctx, trip)
		if err != nil {
			return nil, err
		}
		return summary, ErrAlreadyCompleted
	}

	if err := GuardTransition(trip, domain.TripStatusCompleted); err != nil {
		return nil, err
	}
	if !trip.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	key, err := trip.Assignment.Key(g.ledger.region)
	if err != nil {
		return nil, err
	}

	release := lockDriver(ctx, g.locks, g.logger, g.cfg.LockTTL, key)
	defer release()

	summary := &domain.SettlementSummary{
		TripID:        trip.ID,
		DriverKey:     key,
		Status:        domain.TripStatusCompleted,
		TriggerSource: trigger.Source,
	}

	var committed *domain.DriverAccount
	err = g.store.WithinTx(ctx, func(repos repository.Repositories) error {
		// Settle from the locked row. Price and assignment may have changed
		// since the read above while the status stayed the same.
		current, err := g.lockTrip(ctx, repos, trip.ID, key)
		if err != nil {
			return err
		}
		trip = current

		completedAt := g.now()
		if err := repos.Trips.SetStatus(ctx, trip.ID, domain.TripStatusCompleted, trip.Status, completedAt); err != nil {
			if errors.Is(err, repository.ErrStatusMismatch) {
				return ErrConcurrentModification
			}
			return fmt.Errorf("set trip status: %w", err)
		}

		account, err := g.ledger.accountFor(ctx, repos, trip.Assignment)
		if err != nil {
			return err
		}

		settlement, err := Settle(trip.TotalPrice, trip.PaymentMethod, trip.Assignment, Terms{CommissionRate: account.CommissionRate})
		if err != nil {
			return err
		}

		txn, _, err := g.ledger.apply(ctx, repos, account, posting{
			Metadata: Metadata{
				PaymentMethod: trip.PaymentMethod,
				Description:   settlementDescription(trip),
				CustomerName:  trip.CustomerName,
				Route:         trip.Route(),
				TriggerSource: trigger.Source,
				ActorID:       trigger.ActorID,
			},
			Reference:  domain.TripReference(trip.ID),
			Kind:       domain.SettlementKind(settlement.DriverDelta),
			Amount:     settlement.DriverDelta.Abs(),
			TripID:     trip.ID,
			Commission: settlement.CompanyShare,
		})
		if err != nil {
			return err
		}

		committed = account
		summary.PaymentMethod = trip.PaymentMethod
		summary.TotalPrice = trip.TotalPrice
		summary.DriverDelta = txn.Delta()
		summary.BalanceBefore = txn.BalanceBefore
		summary.BalanceAfter = txn.BalanceAfter
		summary.TransactionID = txn.ID
		summary.CompanyShare = settlement.CompanyShare
		summary.CompanyRevenue = settlement.CompanyRevenue
		summary.CompletedAt = completedAt

		if settlement.CompanyRevenue.IsPositive() {
			entry, _, err := g.company.recordRevenue(ctx, repos, trip.ID, settlement.CompanyRevenue)
			if err != nil {
				return err
			}
			summary.RevenueEntryID = entry.ID
		}
		return nil
	})
	if err != nil {
		return nil, classifyCompletionError(err)
	}

	g.ledger.refresh(ctx, committed)

	g.logger.WithFields(logrus.Fields{
		"trip_id":        trip.ID,
		"driver_key":     key,
		"payment_method": trip.PaymentMethod,
		"delta":          summary.DriverDelta.String(),
		"revenue":        summary.CompanyRevenue.String(),
		"trigger_source": trigger.Source,
		"actor_id":       trigger.ActorID,
	}).Info("trip settled")

	publish(ctx, g.publisher, g.logger, events.TripSettled, events.TripSettledPayload{
		TripID:         trip.ID,
		DriverKey:      key.String(),
		PaymentMethod:  string(trip.PaymentMethod),
		TotalPrice:     trip.TotalPrice,
		DriverDelta:    summary.DriverDelta,
		CompanyRevenue: summary.CompanyRevenue,
		BalanceAfter:   summary.BalanceAfter,
		TriggerSource:  string(trigger.Source),
		ActorID:        trigger.ActorID,
	})

	return summary, nil
}

// lockTrip re-reads the trip under its row lock and repeats the completion
// checks against that copy. A trip that was completed meanwhile, or that now
// names a driver other than the locked one, reports ErrConcurrentModification
// so the caller starts over from a fresh read.
func (g *CompletionGateway) lockTrip(ctx context.Context, repos repository.Repositories, tripID string, locked domain.DriverKey) (*domain.Trip, error) {
	trip, err := repos.Trips.GetByIDForUpdate(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, fmt.Errorf("lock trip: %w", err)
	}
	if trip.IsSettled() {
		return nil, ErrConcurrentModification
	}

	if err := GuardTransition(trip, domain.TripStatusCompleted); err != nil {
		return nil, err
	}
	if !trip.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	key, err := trip.Assignment.Key(g.ledger.region)
	if err != nil {
		return nil, err
	}
	if key != locked {
		return nil, ErrConcurrentModification
	}
	return trip, nil
}

// settledSummary rebuilds the summary of a trip completed earlier from the
// rows its settlement wrote.
func (g *CompletionGateway) settledSummary(ctx context.Context, trip *domain.Trip) (*domain.SettlementSummary, error) {
	repos := g.store.Repositories()

	summary := &domain.SettlementSummary{
		TripID:           trip.ID,
		Status:           trip.Status,
		PaymentMethod:    trip.PaymentMethod,
		TotalPrice:       trip.TotalPrice,
		CompletedAt:      trip.CompletedAt,
		AlreadyCompleted: true,
	}

	txns, err := repos.Transactions.ListByTripID(ctx, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("load settlement: %w", err)
	}
	for _, txn := range txns {
		if txn.Reference != domain.TripReference(trip.ID) {
			continue
		}
		summary.DriverKey = txn.DriverKey
		summary.DriverDelta = txn.Delta()
		summary.BalanceBefore = txn.BalanceBefore
		summary.BalanceAfter = txn.BalanceAfter
		summary.TransactionID = txn.ID
		summary.TriggerSource = txn.TriggerSource
	}

	entry, err := repos.Ledger.GetByReference(ctx, domain.RevenueReference(trip.ID))
	if err != nil {
		return nil, fmt.Errorf("load revenue: %w", err)
	}
	if entry != nil {
		summary.RevenueEntryID = entry.ID
		summary.CompanyRevenue = entry.Amount
	}
	return summary, nil
}

// classifyCompletionError keeps taxonomy errors as they are and reports every
// other failure of the unit of work as ErrLedgerWriteFailed.
func classifyCompletionError(err error) error {
	for _, known := range []error{
		ErrConcurrentModification,
		ErrTripNotFound,
		ErrInvalidTransition,
		ErrDriverNotFound,
		ErrUnassigned,
		ErrInvalidPaymentMethod,
		ErrInvalidAmount,
		ErrInvalidCommissionRate,
		ErrInvalidAssignment,
		ErrInvalidPhone,
		ErrTripSettledForOtherDriver,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrLedgerWriteFailed, err)
}

func settlementDescription(trip *domain.Trip) string {
	if route := trip.Route(); route != "" {
		return "trip " + trip.ID + ": " + route
	}
	return "trip " + trip.ID
}
