package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a unique key (driver key, ledger reference) already exists.
	ErrDuplicate = errors.New("entity already exists")

	// ErrStatusMismatch is returned by conditional status writes when the stored
	// status no longer matches the expected previous status.
	ErrStatusMismatch = errors.New("stored status does not match expected status")
)
