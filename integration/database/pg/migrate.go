package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// Migrate applies all pending goose migrations found under cfg.MigrationsPath, tracked
// in cfg.MigrationsTable. It borrows pool's connection string to open a parallel
// database/sql handle, since goose drives migrations through database/sql rather than
// pgx's native interface.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config, log *slog.Logger) error {
	if cfg.MigrationsPath == "" {
		return ErrMigrationPathNotProvided
	}
	if _, err := os.Stat(cfg.MigrationsPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrMigrationsDirNotFound
		}
		return fmt.Errorf("%w: %w", ErrMigrationsDirNotFound, err)
	}

	if log == nil {
		log = slog.Default()
	}

	db := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer db.Close()

	goose.SetLogger(gooseLogAdapter{log: log})
	goose.SetTableName(cfg.MigrationsTable)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToApplyMigrations, err)
	}

	if err := goose.UpContext(ctx, db, cfg.MigrationsPath); err != nil {
		return fmt.Errorf("%w: %w", ErrFailedToApplyMigrations, err)
	}

	log.InfoContext(ctx, "migrations applied", slog.String("path", cfg.MigrationsPath))
	return nil
}

// gooseLogAdapter routes goose's internal logging through slog so migration output
// matches the rest of the service's logs.
type gooseLogAdapter struct {
	log *slog.Logger
}

func (a gooseLogAdapter) Fatalf(format string, args ...any) {
	a.log.Error(fmt.Sprintf(format, args...))
}

func (a gooseLogAdapter) Printf(format string, args ...any) {
	a.log.Info(fmt.Sprintf(format, args...))
}

var _ goose.Logger = gooseLogAdapter{}
