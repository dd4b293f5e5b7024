package service

import (
	"errors"
	"fmt"

	"transferledger/internal/domain"
)

var (
	// ErrNotFound is the parent of every "missing entity" error.
	ErrNotFound = errors.New("not found")

	// ErrTripNotFound is returned when the trip does not exist.
	ErrTripNotFound = fmt.Errorf("trip %w", ErrNotFound)

	// ErrDriverNotFound is returned when an affiliated driver has no account.
	ErrDriverNotFound = fmt.Errorf("driver %w", ErrNotFound)

	// ErrAlreadyCompleted is returned when a trip has already been completed and
	// settled. Callers treat it as success.
	ErrAlreadyCompleted = errors.New("trip already completed")

	// ErrUnassigned is returned when a transition needs a driver and the trip has none.
	ErrUnassigned = errors.New("trip has no driver assigned")

	// ErrInvalidPaymentMethod is returned for unsupported payment methods.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrConcurrentModification is returned when a conditional write lost a race.
	// Safe to retry once.
	ErrConcurrentModification = errors.New("trip was modified concurrently")

	// ErrLedgerWriteFailed is returned when the completion unit of work could
	// not be committed. Nothing was written.
	ErrLedgerWriteFailed = errors.New("ledger write failed")

	// ErrInvalidTransition is returned when the lifecycle forbids a transition.
	ErrInvalidTransition = errors.New("invalid trip status transition")

	// ErrInvalidTrigger is returned when a completion trigger payload is malformed.
	ErrInvalidTrigger = errors.New("invalid completion trigger")

	// ErrInvalidAmount is returned for non-positive prices, payouts and handovers.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidCommissionRate is returned when a commission rate is outside 0..100.
	ErrInvalidCommissionRate = errors.New("invalid commission rate")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidReference is returned when a payout or handover reference is empty.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrLedgerInconsistent is returned when a balance differs from its log sum.
	ErrLedgerInconsistent = errors.New("driver balance does not match transaction log")

	// ErrInvalidLedgerKind is returned when filtering by an unknown ledger entry kind.
	ErrInvalidLedgerKind = errors.New("invalid ledger entry kind")

	// ErrPriceLocked is returned when the price of a confirmed trip is changed.
	ErrPriceLocked = errors.New("trip price is locked")

	// ErrDuplicatePayout is returned when a reference is reused with a different amount.
	ErrDuplicatePayout = errors.New("reference already used with a different amount")

	// ErrTripSettledForOtherDriver is returned when a trip's settlement is
	// posted to a driver other than the one it was settled for.
	ErrTripSettledForOtherDriver = errors.New("trip already settled for another driver")

	// ErrDriverExists is returned when registering a driver id twice.
	ErrDriverExists = errors.New("driver already exists")

	// ErrInvalidPhone is returned when a phone number cannot be normalized.
	ErrInvalidPhone = domain.ErrInvalidPhone

	// ErrInvalidAssignment is returned when a driver assignment is malformed.
	ErrInvalidAssignment = domain.ErrInvalidAssignment
)
