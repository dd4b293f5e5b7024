package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

const tripColumns = `
	id, status, total_price, currency, payment_method,
	assignment_kind, driver_id, adhoc_name, adhoc_phone, adhoc_plate, adhoc_fee,
	customer_name, pickup_address, dropoff_address,
	created_at, confirmed_at, started_at, completed_at, cancelled_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var assignmentKind, driverID, adHocName, adHocPhone, adHocPlate sql.NullString
	var adHocFee decimal.NullDecimal
	var confirmedAt, startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&trip.ID,
		&trip.Status,
		&trip.TotalPrice,
		&trip.Currency,
		&trip.PaymentMethod,
		&assignmentKind,
		&driverID,
		&adHocName,
		&adHocPhone,
		&adHocPlate,
		&adHocFee,
		&trip.CustomerName,
		&trip.PickupAddress,
		&trip.DropoffAddress,
		&trip.CreatedAt,
		&confirmedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
	)
	if err != nil {
		return nil, err
	}

	switch domain.DriverKind(assignmentKind.String) {
	case domain.DriverKindAffiliated:
		trip.Assignment = domain.Affiliated(driverID.String)
	case domain.DriverKindAdHoc:
		trip.Assignment = domain.AdHoc(domain.AdHocDriver{
			Name:        adHocName.String,
			Phone:       adHocPhone.String,
			PlateNumber: adHocPlate.String,
			FixedFee:    adHocFee.Decimal,
		})
	}

	trip.ConfirmedAt = confirmedAt.Time
	trip.StartedAt = startedAt.Time
	trip.CompletedAt = completedAt.Time
	trip.CancelledAt = cancelledAt.Time

	return &trip, nil
}

// assignmentArgs flattens a DriverAssignment into its column values.
func assignmentArgs(a *domain.DriverAssignment) []any {
	if a == nil {
		return []any{nil, nil, nil, nil, nil, nil}
	}
	if a.Kind == domain.DriverKindAffiliated {
		return []any{string(a.Kind), a.DriverID, nil, nil, nil, nil}
	}
	return []any{
		string(a.Kind),
		nil,
		nullString(a.AdHoc.Name),
		a.AdHoc.Phone,
		nullString(a.AdHoc.PlateNumber),
		a.AdHoc.FixedFee,
	}
}

// Create persists a new trip.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (` + tripColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	args := []any{trip.ID, trip.Status, trip.TotalPrice, trip.Currency, trip.PaymentMethod}
	args = append(args, assignmentArgs(trip.Assignment)...)
	args = append(args,
		trip.CustomerName,
		trip.PickupAddress,
		trip.DropoffAddress,
		trip.CreatedAt,
		nullTime(trip.ConfirmedAt),
		nullTime(trip.StartedAt),
		nullTime(trip.CompletedAt),
		nullTime(trip.CancelledAt),
	)

	_, err := r.q.ExecContext(ctx, query, args...)
	return translateError(err)
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}
	return trip, nil
}

// GetByIDForUpdate retrieves a trip and holds its row lock until the
// transaction ends. Writers outside the transaction block on the row.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips WHERE id = $1 FOR UPDATE`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translateError(err)
	}
	return trip, nil
}

// GetAll retrieves the most recent trips.
func (r *TripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	query := `SELECT ` + tripColumns + ` FROM trips ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

// timestampColumn names the column stamped when a trip enters status.
func timestampColumn(status domain.TripStatus) string {
	switch status {
	case domain.TripStatusConfirmed:
		return "confirmed_at"
	case domain.TripStatusInProgress:
		return "started_at"
	case domain.TripStatusCompleted:
		return "completed_at"
	case domain.TripStatusCancelled:
		return "cancelled_at"
	default:
		return ""
	}
}

// SetStatus performs the compare-and-set status write.
func (r *TripRepository) SetStatus(ctx context.Context, id string, status, expected domain.TripStatus, at time.Time) error {
	query := `UPDATE trips SET status = $1 WHERE id = $2 AND status = $3`
	args := []any{status, id, expected}
	if column := timestampColumn(status); column != "" {
		query = `UPDATE trips SET status = $1, ` + column + ` = $4 WHERE id = $2 AND status = $3`
		args = append(args, at)
	}

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return r.conditionalResult(ctx, id, result)
}

// Assign stores the assignment and moves the trip to ASSIGNED.
func (r *TripRepository) Assign(ctx context.Context, id string, assignment *domain.DriverAssignment, expected domain.TripStatus) error {
	query := `
		UPDATE trips
		SET status = $1, assignment_kind = $2, driver_id = $3, adhoc_name = $4, adhoc_phone = $5, adhoc_plate = $6, adhoc_fee = $7
		WHERE id = $8 AND status = $9
	`

	args := []any{domain.TripStatusAssigned}
	args = append(args, assignmentArgs(assignment)...)
	args = append(args, id, expected)

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	return r.conditionalResult(ctx, id, result)
}

// UpdatePrice changes the total price.
func (r *TripRepository) UpdatePrice(ctx context.Context, id string, price decimal.Decimal, expected domain.TripStatus) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE trips SET total_price = $1 WHERE id = $2 AND status = $3`,
		price, id, expected,
	)
	if err != nil {
		return err
	}
	return r.conditionalResult(ctx, id, result)
}

// conditionalResult distinguishes a missing trip from a failed status condition.
func (r *TripRepository) conditionalResult(ctx context.Context, id string, result sql.Result) error {
	err := expectOneRow(result)
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return repository.ErrStatusMismatch
	}
	return repository.ErrNotFound
}

// Ensure TripRepository implements repository.TripRepository.
var _ repository.TripRepository = (*TripRepository)(nil)
