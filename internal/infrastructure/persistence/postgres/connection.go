// Package postgres provides PostgreSQL database connection setup
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/dbresolver"
)

// SetupDatabase opens the primary connection and registers read replicas.
// Transactions always run on the primary.
func SetupDatabase(dsn string, cfg config.DatabaseConfig, gormLogger logger.Interface, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := registerReplicas(db, cfg); err != nil {
		return nil, err
	}

	log.Info("Database connection initialized",
		zap.String("dialect", string(config.DialectPostgres)),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("replicas", len(cfg.Replicas)),
	)

	return db, nil
}

func registerReplicas(db *gorm.DB, cfg config.DatabaseConfig) error {
	if len(cfg.Replicas) == 0 {
		return nil
	}

	replicas := make([]gorm.Dialector, len(cfg.Replicas))
	for i, dsn := range cfg.Replicas {
		replicas[i] = postgres.Open(dsn)
	}

	resolver := dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	})
	if cfg.MaxOpenConns > 0 {
		resolver = resolver.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		resolver = resolver.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Use(resolver); err != nil {
		return fmt.Errorf("failed to register read replicas: %w", err)
	}
	return nil
}
