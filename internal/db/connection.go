package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nkiryanov/doccollab/internal/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Passes golang-migrate progress messages to logger at debug level
type migrateLogger struct {
	logger logger.Logger
}

func (l migrateLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l migrateLogger) Verbose() bool {
	return false
}

// golang-migrate expects dsn in format 'pgx5://...' only, make it happy with 'postgres://...'
func migrateDSN(dsn string) string {
	return strings.NewReplacer(
		"postgres://", "pgx5://",
		"postgresql://", "pgx5://",
	).Replace(dsn)
}

// Migrate applies embedded credentials schema and returns schema version
// dsn: database source name in format postgres://...
func Migrate(dsn string, l logger.Logger) (uint, error) {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return 0, err
	}

	migrator, err := migrate.NewWithSourceInstance("iofs", source, migrateDSN(dsn))
	if err != nil {
		return 0, fmt.Errorf("error while preparing migrator. Err: %w", err)
	}
	defer migrator.Close() // nolint:errcheck
	migrator.Log = migrateLogger{logger: l}

	err = migrator.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		l.Debug("Credentials schema is up to date")
	case err != nil:
		return 0, fmt.Errorf("error while applying migrations. Err: %w", err)
	}

	version, dirty, err := migrator.Version()
	if err != nil {
		return 0, fmt.Errorf("error while reading schema version. Err: %w", err)
	}
	if dirty {
		return version, fmt.Errorf("credentials schema version %d is dirty, fix it manually", version)
	}
	return version, nil
}

// Connect creates pool and checks database is reachable
// pgxpool connects lazily, so without ping bad dsn shows up only on the first token read
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cant initialize connection pool. Err: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("cant reach database. Err: %w", err)
	}

	return pool, nil
}

func ConnectAndMigrate(ctx context.Context, dsn string, l logger.Logger) (*pgxpool.Pool, error) {
	if l == nil {
		l = logger.NewNoOpLogger()
	}

	version, err := Migrate(dsn, l)
	if err != nil {
		return nil, err
	}

	pool, err := Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}

	l.Info("Credentials database ready", "schema_version", version)
	return pool, nil
}
