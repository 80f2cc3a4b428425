package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toonshi/pharmiliar/internal/anomaly"
	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/exitcode"
	"github.com/toonshi/pharmiliar/internal/logging"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the anomaly detectors over stored service records",
	RunE:  runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&cfg.Department, "department", "", "Scope the scan to one department")
	f.BoolVar(&cfg.JSONOutput, "json", false, "Print findings as JSON instead of text")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if cfg.DSN == "" {
		log.Error().Msg("--dsn or DATABASE_URL is required")
		os.Exit(exitcode.UsageError)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Error().Err(err).Msg("ruleset loading failed")
		os.Exit(exitcode.UsageError)
	}

	var filter store.Filter
	if cfg.Department != "" {
		dept, ok := model.DepartmentByName(cfg.Department)
		if !ok {
			log.Error().Str("department", cfg.Department).Msg("unknown department")
			os.Exit(exitcode.UsageError)
		}
		filter.Department = &dept
	}

	st, err := store.Open(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer st.Close()

	summary, findings, err := anomaly.Scan(ctx, st, log, filter, rules.Detectors)
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		os.Exit(exitcode.AnalysisError)
	}

	if cfg.JSONOutput {
		out := struct {
			RunID    string          `json:"run_id"`
			Scanned  int64           `json:"records_scanned"`
			Findings []model.Finding `json:"findings"`
		}{summary.RunID, summary.RecordsScanned, findings}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Analysis run %s: %d records scanned, %d findings (%.1fs)\n",
		summary.RunID, summary.RecordsScanned, summary.FindingCount,
		summary.Duration.Seconds())
	for kind, n := range summary.FindingsByKind {
		fmt.Printf("  %-26s %d\n", kind, n)
	}
	fmt.Println()
	for _, f := range findings {
		fmt.Printf("[%.2f] %-26s %-12s %s\n", f.Severity, f.Kind, f.Code, f.Explanation)
	}
	return nil
}
