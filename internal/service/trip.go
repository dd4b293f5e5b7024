package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// TripService handles trip operations up to, but not including, completion.
// Every status change is a conditional write against the status it was
// validated against.
type TripService struct {
	store    repository.Store
	ledger   *DriverLedger
	currency string
	logger   logrus.FieldLogger
	now      func() time.Time
}

// NewTripService creates a new TripService.
func NewTripService(store repository.Store, ledger *DriverLedger, defaultCurrency string, logger logrus.FieldLogger) *TripService {
	return &TripService{
		store:    store,
		ledger:   ledger,
		currency: defaultCurrency,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateTripRequest contains the parameters for creating a trip.
type CreateTripRequest struct {
	TotalPrice     decimal.Decimal
	Currency       string
	PaymentMethod  string
	CustomerName   string
	PickupAddress  string
	DropoffAddress string
}

// CreateTrip creates a new trip in PENDING state.
func (s *TripService) CreateTrip(ctx context.Context, req CreateTripRequest) (*domain.Trip, error) {
	if !req.TotalPrice.IsPositive() {
		return nil, ErrInvalidAmount
	}

	method := domain.ParsePaymentMethod(req.PaymentMethod)
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	trip := &domain.Trip{
		ID:             uuid.New().String(),
		Status:         domain.TripStatusPending,
		TotalPrice:     req.TotalPrice.Round(2),
		Currency:       currency,
		PaymentMethod:  method,
		CustomerName:   req.CustomerName,
		PickupAddress:  req.PickupAddress,
		DropoffAddress: req.DropoffAddress,
		CreatedAt:      s.now(),
	}

	if err := s.store.Repositories().Trips.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":        trip.ID,
		"payment_method": trip.PaymentMethod,
		"total_price":    trip.TotalPrice.String(),
	}).Info("trip created")

	return trip, nil
}

// AssignDriver resolves who drives the trip. Affiliated drivers must have an
// account; ad-hoc phones are normalized here so every later step sees the
// same identity. Reassigning an ASSIGNED trip is allowed.
func (s *TripService) AssignDriver(ctx context.Context, tripID string, assignment *domain.DriverAssignment) (*domain.Trip, error) {
	if err := assignment.Validate(); err != nil {
		return nil, err
	}

	resolved := *assignment
	switch resolved.Kind {
	case domain.DriverKindAffiliated:
		if _, err := s.ledger.Account(ctx, domain.AffiliatedKey(resolved.DriverID)); err != nil {
			return nil, err
		}
	case domain.DriverKindAdHoc:
		driver := *resolved.AdHoc
		phone, err := domain.NormalizePhone(driver.Phone, s.ledger.region)
		if err != nil {
			return nil, err
		}
		driver.Phone = phone
		driver.FixedFee = driver.FixedFee.Round(2)
		resolved.AdHoc = &driver
	}

	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}

	candidate := *trip
	candidate.Assignment = &resolved
	if err := GuardTransition(&candidate, domain.TripStatusAssigned); err != nil {
		return nil, err
	}

	if err := s.store.Repositories().Trips.Assign(ctx, tripID, &resolved, trip.Status); err != nil {
		return nil, conditionalWriteError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id":     tripID,
		"driver_kind": resolved.Kind,
	}).Info("driver assigned")

	return s.GetTrip(ctx, tripID)
}

// ConfirmTrip confirms an assigned trip. The price is fixed from here on.
func (s *TripService) ConfirmTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.transition(ctx, tripID, domain.TripStatusConfirmed)
}

// StartTrip moves a trip to IN_PROGRESS.
func (s *TripService) StartTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.transition(ctx, tripID, domain.TripStatusInProgress)
}

// CancelTrip cancels a trip that has not reached a terminal state.
func (s *TripService) CancelTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	return s.transition(ctx, tripID, domain.TripStatusCancelled)
}

// UpdatePrice changes the total price of a trip that is not yet confirmed.
func (s *TripService) UpdatePrice(ctx context.Context, tripID string, price decimal.Decimal) (*domain.Trip, error) {
	if !price.IsPositive() {
		return nil, ErrInvalidAmount
	}

	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if trip.PriceLocked() {
		return nil, ErrPriceLocked
	}

	if err := s.store.Repositories().Trips.UpdatePrice(ctx, tripID, price.Round(2), trip.Status); err != nil {
		return nil, conditionalWriteError(err)
	}
	return s.GetTrip(ctx, tripID)
}

// GetTrip retrieves a trip by ID.
func (s *TripService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	trip, err := s.store.Repositories().Trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTripNotFound
		}
		return nil, err
	}
	return trip, nil
}

// GetAllTrips retrieves all trips.
func (s *TripService) GetAllTrips(ctx context.Context) ([]*domain.Trip, error) {
	return s.store.Repositories().Trips.GetAll(ctx)
}

func (s *TripService) transition(ctx context.Context, tripID string, next domain.TripStatus) (*domain.Trip, error) {
	if next == domain.TripStatusCompleted {
		return nil, fmt.Errorf("%w: completion goes through the completion gateway", ErrInvalidTransition)
	}

	trip, err := s.GetTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if err := GuardTransition(trip, next); err != nil {
		return nil, err
	}

	if err := s.store.Repositories().Trips.SetStatus(ctx, tripID, next, trip.Status, s.now()); err != nil {
		return nil, conditionalWriteError(err)
	}

	s.logger.WithFields(logrus.Fields{
		"trip_id": tripID,
		"from":    trip.Status,
		"to":      next,
	}).Info("trip status changed")

	return s.GetTrip(ctx, tripID)
}

func conditionalWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrStatusMismatch):
		return ErrConcurrentModification
	case errors.Is(err, repository.ErrNotFound):
		return ErrTripNotFound
	default:
		return err
	}
}
