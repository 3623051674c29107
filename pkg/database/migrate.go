package database

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"

// Migrate applies all pending schema migrations bundled with the binary.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db.DB, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := goose.GetDBVersionContext(ctx, db.DB)
	if err != nil {
		return fmt.Errorf("get migration version: %w", err)
	}
	logger.Info("database migrations applied", zap.Int64("version", version))
	return nil
}
