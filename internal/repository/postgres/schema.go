package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied at startup; every statement is idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS trips (
		id               TEXT PRIMARY KEY,
		status           TEXT NOT NULL,
		total_price      NUMERIC(14,2) NOT NULL,
		currency         TEXT NOT NULL,
		payment_method   TEXT NOT NULL,
		assignment_kind  TEXT,
		driver_id        TEXT,
		adhoc_name       TEXT,
		adhoc_phone      TEXT,
		adhoc_plate      TEXT,
		adhoc_fee        NUMERIC(14,2),
		customer_name    TEXT NOT NULL DEFAULT '',
		pickup_address   TEXT NOT NULL DEFAULT '',
		dropoff_address  TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		confirmed_at     TIMESTAMPTZ,
		started_at       TIMESTAMPTZ,
		completed_at     TIMESTAMPTZ,
		cancelled_at     TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS driver_accounts (
		driver_key        TEXT PRIMARY KEY,
		kind              TEXT NOT NULL,
		driver_id         TEXT,
		name              TEXT NOT NULL DEFAULT '',
		phone             TEXT NOT NULL DEFAULT '',
		plate_number      TEXT NOT NULL DEFAULT '',
		commission_rate   NUMERIC(5,2) NOT NULL DEFAULT 0,
		balance           NUMERIC(14,2) NOT NULL DEFAULT 0,
		trip_count        INTEGER NOT NULL DEFAULT 0,
		cash_trips        INTEGER NOT NULL DEFAULT 0,
		card_trips        INTEGER NOT NULL DEFAULT 0,
		transfer_trips    INTEGER NOT NULL DEFAULT 0,
		total_commission  NUMERIC(14,2) NOT NULL DEFAULT 0,
		total_payout      NUMERIC(14,2) NOT NULL DEFAULT 0,
		version           BIGINT NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL,
		updated_at        TIMESTAMPTZ NOT NULL
	)`,
	`ALTER TABLE driver_accounts ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 0`,
	`CREATE TABLE IF NOT EXISTS driver_transactions (
		id              BIGINT PRIMARY KEY,
		driver_key      TEXT NOT NULL REFERENCES driver_accounts(driver_key),
		kind            TEXT NOT NULL,
		amount          NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
		balance_before  NUMERIC(14,2) NOT NULL,
		balance_after   NUMERIC(14,2) NOT NULL,
		reference       TEXT NOT NULL,
		trip_id         TEXT,
		payment_method  TEXT,
		description     TEXT NOT NULL DEFAULT '',
		customer_name   TEXT NOT NULL DEFAULT '',
		route           TEXT NOT NULL DEFAULT '',
		trigger_source  TEXT NOT NULL DEFAULT '',
		actor_id        TEXT NOT NULL DEFAULT '',
		created_at      TIMESTAMPTZ NOT NULL,
		UNIQUE (driver_key, reference)
	)`,
	`CREATE INDEX IF NOT EXISTS driver_transactions_trip_idx ON driver_transactions (trip_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS driver_transactions_trip_settlement_key
		ON driver_transactions (trip_id) WHERE reference = 'trip:' || trip_id`,
	`CREATE TABLE IF NOT EXISTS company_ledger (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		source       TEXT NOT NULL,
		trip_id      TEXT,
		driver_key   TEXT,
		reference    TEXT NOT NULL UNIQUE,
		amount       NUMERIC(14,2) NOT NULL CHECK (amount >= 0),
		description  TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL
	)`,
}

// EnsureSchema creates the settlement tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
