// Package connect opens the network store selected by a store.DatabaseConfig.
package connect

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/store"
	"github.com/dw-outreach/outreach/backend/pkg/store/migrations"
	pgstore "github.com/dw-outreach/outreach/backend/pkg/store/pgx"
	sqlitestore "github.com/dw-outreach/outreach/backend/pkg/store/sqlite"

	_ "github.com/lib/pq"
)

// Open migrates and opens the configured backend.
func Open(ctx context.Context, cfg store.DatabaseConfig) (store.NetworkStore, error) {
	if !cfg.UsesPostgres() {
		logger.Info("[Store] Using SQLite", "path", cfg.SQLitePath)
		return sqlitestore.Open(ctx, cfg.SQLitePath)
	}

	if err := migratePostgres(cfg.PostgresURL); err != nil {
		return nil, err
	}
	logger.Info("[Store] Using PostgreSQL")
	return pgstore.Open(ctx, cfg.PostgresURL)
}

func migratePostgres(url string) error {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	defer db.Close()
	return migrations.Up(db, migrations.Postgres)
}
