package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/toonshi/pharmiliar/internal/exitcode"
	"github.com/toonshi/pharmiliar/internal/logging"
	"github.com/toonshi/pharmiliar/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}

	st, err := store.Open(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer st.Close()

	if err := st.ApplyMigrations(ctx, log); err != nil {
		log.Error().Err(err).Msg("migration failed")
		os.Exit(exitcode.FinalizeError)
	}

	log.Info().Msg("all migrations applied successfully")
	return nil
}
