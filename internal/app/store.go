package app

import (
	"context"
	"database/sql"

	"github.com/newrelic/go-agent/v3/newrelic"

	"transferledger/internal/config"
	"transferledger/internal/repository"
	"transferledger/internal/repository/memory"
	"transferledger/internal/repository/postgres"
)

// NewStore opens the configured ledger store. db is nil for the memory backend.
func NewStore(ctx context.Context, cfg *config.Config, nrApp *newrelic.Application) (repository.Store, *sql.DB, error) {
	if cfg.Settlement.StoreBackend == config.StoreBackendMemory {
		return memory.NewStore(), nil, nil
	}

	db, err := NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		return nil, nil, err
	}
	return postgres.NewStore(db), db, nil
}
