package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/toonshi/pharmiliar/internal/config"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "tariffload",
	Short: "Hospital service tariff → Postgres migration and anomaly scanner",
	Long: "Reads hospital service price list files (CSV/TSV/Parquet), normalizes and " +
		"classifies the records into Postgres, and flags pricing anomalies across " +
		"the Normal, Special and Non-E.A. rate tiers.",
}

func init() {
	// A .env file may carry DATABASE_URL; absence is fine.
	_ = godotenv.Load()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.DSN, "dsn", os.Getenv("DATABASE_URL"), "Postgres connection string (or set DATABASE_URL)")
	pf.StringVar(&cfg.RulesPath, "rules", "", "Path to YAML ruleset (catalogs, cleaning, thresholds); built-in defaults when omitted")
	pf.StringVar(&cfg.LogFormat, "log-format", "text", "Log format: text or json")
}
