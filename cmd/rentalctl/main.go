package main

import (
	"context"
	"fmt"
	"os"

	"rentalhub/internal/app"
	"rentalhub/internal/config"
	"rentalhub/internal/pkg/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "rentalctl",
		Short:         "Rental listing maintenance tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		migrateCmd(),
		seedCmd(),
		exportCmd(),
		pruneImagesCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withApp loads configuration, opens the configured stores and runs fn.
func withApp(ctx context.Context, fn func(a *app.Application) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Mode: cfg.LogMode, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(a)
}
