// Package sqlite provides SQLite database setup and configuration
package sqlite

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupDatabase opens the SQLite file at path, creating its parent
// directory when missing. Foreign keys are enforced and WAL is enabled
// so readers do not block the writer.
func SetupDatabase(path string, cfg config.DatabaseConfig, gormLogger logger.Interface) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	db, err := gorm.Open(sqlite.Open(DSN(path, cfg.BusyTimeout)), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// DSN builds a go-sqlite3 connection string.
func DSN(path string, busyTimeout time.Duration) string {
	params := url.Values{}
	params.Set("_foreign_keys", "on")
	params.Set("_journal_mode", "WAL")
	params.Set("_txlock", "immediate")
	if busyTimeout > 0 {
		params.Set("_busy_timeout", fmt.Sprintf("%d", busyTimeout.Milliseconds()))
	}
	return "file:" + path + "?" + params.Encode()
}
