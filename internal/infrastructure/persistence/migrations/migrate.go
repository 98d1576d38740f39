// Package migrations versions the recipe schema with golang-migrate. The
// SQL files for each dialect are embedded.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed sql/sqlite/*.sql sql/postgres/*.sql
var sqlFiles embed.FS

const migrationsTable = "schema_migrations"

// Migrator applies the embedded migrations of one dialect
type Migrator struct {
	migrate *migrate.Migrate
	dialect config.Dialect
	logger  *zap.Logger
}

// New creates a migrator for the given dialect over an open connection.
func New(db *sql.DB, dialect config.Dialect, logger *zap.Logger) (*Migrator, error) {
	source, err := iofs.New(sqlFiles, "sql/"+string(dialect))
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	var driver database.Driver
	switch dialect {
	case config.DialectSQLite:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: migrationsTable})
	case config.DialectPostgres:
		// A dedicated connection: closing the driver must not close db.
		var conn *sql.Conn
		conn, err = db.Conn(context.Background())
		if err != nil {
			return nil, fmt.Errorf("failed to acquire migration connection: %w", err)
		}
		driver, err = postgres.WithConnection(context.Background(), conn, &postgres.Config{MigrationsTable: migrationsTable})
		if err != nil {
			_ = conn.Close()
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, string(dialect), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return &Migrator{
		migrate: m,
		dialect: dialect,
		logger:  logger.Named("migrations"),
	}, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	from, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	start := time.Now()
	switch err := m.migrate.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		m.logger.Debug("Schema is up to date", zap.Uint("version", from))
		return nil
	case err != nil:
		return fmt.Errorf("apply migrations: %w", err)
	}

	to, _, _ := m.Version()
	m.logger.Info("Schema migrated",
		zap.String("dialect", string(m.dialect)),
		zap.Uint("from", from),
		zap.Uint("to", to),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

// Down reverts the most recent migration.
func (m *Migrator) Down() error {
	from, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if err := m.migrate.Steps(-1); err != nil {
		return fmt.Errorf("revert migration %d: %w", from, err)
	}
	m.logger.Info("Schema reverted", zap.Uint("from", from))
	return nil
}

// Version reports the applied schema version; 0 means nothing is applied.
func (m *Migrator) Version() (version uint, dirty bool, err error) {
	version, dirty, err = m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

// Close releases the connection held by the migration driver. The shared
// *sql.DB stays open; the sqlite3 driver has no connection of its own.
func (m *Migrator) Close() error {
	if m.dialect == config.DialectSQLite {
		return nil
	}

	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}
