package postgres

import (
	"context"
	"database/sql"

	"transferledger/internal/domain"
	"transferledger/internal/repository"
)

// DriverAccountRepository is a PostgreSQL implementation of repository.DriverAccountRepository.
type DriverAccountRepository struct {
	q Querier
}

// NewDriverAccountRepository creates a new PostgreSQL driver account repository.
func NewDriverAccountRepository(db *sql.DB) *DriverAccountRepository {
	return &DriverAccountRepository{q: db}
}

// NewDriverAccountRepositoryWithTx creates a driver account repository using a transaction.
func NewDriverAccountRepositoryWithTx(tx *sql.Tx) *DriverAccountRepository {
	return &DriverAccountRepository{q: tx}
}

const accountColumns = `
	driver_key, kind, COALESCE(driver_id, ''), name, phone, plate_number, commission_rate,
	balance, trip_count, cash_trips, card_trips, transfer_trips, total_commission, total_payout,
	version, created_at, updated_at`

func scanAccount(row rowScanner) (*domain.DriverAccount, error) {
	var account domain.DriverAccount
	err := row.Scan(
		&account.Key,
		&account.Kind,
		&account.DriverID,
		&account.Name,
		&account.Phone,
		&account.PlateNumber,
		&account.CommissionRate,
		&account.Balance,
		&account.TripCount,
		&account.CashTrips,
		&account.CardTrips,
		&account.TransferTrips,
		&account.TotalCommission,
		&account.TotalPayout,
		&account.Version,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

const insertAccount = `
	INSERT INTO driver_accounts (
		driver_key, kind, driver_id, name, phone, plate_number, commission_rate,
		balance, trip_count, cash_trips, card_trips, transfer_trips, total_commission, total_payout,
		version, created_at, updated_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

func accountArgs(a *domain.DriverAccount) []any {
	return []any{
		a.Key, a.Kind, nullString(a.DriverID), a.Name, a.Phone, a.PlateNumber, a.CommissionRate,
		a.Balance, a.TripCount, a.CashTrips, a.CardTrips, a.TransferTrips, a.TotalCommission, a.TotalPayout,
		a.Version, a.CreatedAt, a.UpdatedAt,
	}
}

// Create adds a new account.
func (r *DriverAccountRepository) Create(ctx context.Context, account *domain.DriverAccount) error {
	_, err := r.q.ExecContext(ctx, insertAccount, accountArgs(account)...)
	return translateError(err)
}

// CreateIfAbsent inserts the account unless the key exists (upsert for ad-hoc drivers).
func (r *DriverAccountRepository) CreateIfAbsent(ctx context.Context, account *domain.DriverAccount) (bool, error) {
	result, err := r.q.ExecContext(ctx, insertAccount+` ON CONFLICT (driver_key) DO NOTHING`, accountArgs(account)...)
	if err != nil {
		return false, translateError(err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected == 1, nil
}

// GetByKey retrieves an account by key.
func (r *DriverAccountRepository) GetByKey(ctx context.Context, key domain.DriverKey) (*domain.DriverAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM driver_accounts WHERE driver_key = $1`

	account, err := scanAccount(r.q.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, translateError(err)
	}
	return account, nil
}

// GetByKeyForUpdate retrieves an account and holds its row lock until the
// transaction ends, serializing concurrent ledger writes for the same driver.
func (r *DriverAccountRepository) GetByKeyForUpdate(ctx context.Context, key domain.DriverKey) (*domain.DriverAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM driver_accounts WHERE driver_key = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, translateError(err)
	}
	return account, nil
}

// GetAll retrieves all accounts.
func (r *DriverAccountRepository) GetAll(ctx context.Context) ([]*domain.DriverAccount, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+accountColumns+` FROM driver_accounts ORDER BY driver_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []*domain.DriverAccount
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// UpdateProjection writes the balance and lifetime aggregates.
func (r *DriverAccountRepository) UpdateProjection(ctx context.Context, account *domain.DriverAccount) error {
	query := `
		UPDATE driver_accounts
		SET balance = $1, trip_count = $2, cash_trips = $3, card_trips = $4, transfer_trips = $5,
		    total_commission = $6, total_payout = $7, version = $8, updated_at = $9
		WHERE driver_key = $10
	`

	result, err := r.q.ExecContext(ctx, query,
		account.Balance,
		account.TripCount,
		account.CashTrips,
		account.CardTrips,
		account.TransferTrips,
		account.TotalCommission,
		account.TotalPayout,
		account.Version,
		account.UpdatedAt,
		account.Key,
	)
	if err != nil {
		return err
	}
	return expectOneRow(result)
}

// Ensure DriverAccountRepository implements repository.DriverAccountRepository.
var _ repository.DriverAccountRepository = (*DriverAccountRepository)(nil)
