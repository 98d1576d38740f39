// Package main provides the recipes server entry point
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/container"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// Set with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "recipes",
		Short:        "Serve recipes selected by id, by ingredients or at random",
		SilenceUsage: true,
		RunE:         runServe,
	}

	root.PersistentFlags().StringP("config", "c", "", "config file (default ./config.yaml)")
	root.PersistentFlags().StringP("db-uri", "d", "", "database uri, sqlite://<file>.db or postgres://...")
	root.Flags().StringP("init-from", "i", "", "import recipes from a JSON file or s3:// object before serving")
	root.Flags().IntP("port", "p", 3000, "port to listen on")

	root.AddCommand(
		newVersionCommand(),
		newMigrateCommand(),
		newHashPasswordCommand(),
	)
	return root
}

// newLoader builds a config loader bound to the command's flags.
func newLoader(cmd *cobra.Command) (*config.Loader, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return config.NewLoader(path, cmd.Flags())
}

func runServe(cmd *cobra.Command, _ []string) error {
	loader, err := newLoader(cmd)
	if err != nil {
		return err
	}

	app := fx.New(
		fx.NopLogger,
		fx.StartTimeout(time.Minute),
		container.New(loader),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	exitCode := 0
	select {
	case <-ctx.Done():
	case sig := <-app.Wait():
		exitCode = sig.ExitCode
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := app.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop application gracefully: %w", err)
	}
	if exitCode != 0 {
		return fmt.Errorf("application exited with code %d", exitCode)
	}
	return nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
