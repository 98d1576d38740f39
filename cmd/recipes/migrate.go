package main

import (
	"fmt"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/container"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/persistence/migrations"
	"github.com/alchemorsel/recipe-server/pkg/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *migrations.Migrator) error {
					return m.Up()
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *migrations.Migrator) error {
					return m.Down()
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withMigrator(cmd, func(m *migrations.Migrator) error {
					v, dirty, err := m.Version()
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", v, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(*migrations.Migrator) error) error {
	loader, err := newLoader(cmd)
	if err != nil {
		return err
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: "console",
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	db, err := container.OpenDatabase(cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.SQL.Close()

	m, err := migrations.New(db.SQL, db.Dialect, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			log.Warn("Failed to close migrator", zap.Error(err))
		}
	}()

	return fn(m)
}
