package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/exitcode"
	"github.com/toonshi/pharmiliar/internal/ingest"
	"github.com/toonshi/pharmiliar/internal/logging"
	"github.com/toonshi/pharmiliar/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a tariff file into the database",
	RunE:  runIngest,
}

func init() {
	f := ingestCmd.Flags()
	f.StringVar(&cfg.FilePath, "file", "", "Path to tariff file (required)")
	f.BoolVar(&cfg.Force, "force", false, "Re-import even if file SHA already loaded")
	f.BoolVar(&cfg.KeepStaging, "keep-staging", false, "Keep staging rows after finalize")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)
	ctx := context.Background()

	if err := cfg.ValidateWithDSN(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Error().Err(err).Msg("ruleset loading failed")
		os.Exit(exitcode.UsageError)
	}

	st, err := store.Open(ctx, cfg.DSN)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		os.Exit(exitcode.DBConnError)
	}
	defer st.Close()

	summary, err := ingest.Run(ctx, st, log, &cfg, rules)
	if err != nil {
		if pe, ok := err.(*ingest.PipelineError); ok {
			log.Error().Err(pe.Err).Str("phase", pe.Phase).Msg("ingest failed")
			switch pe.Phase {
			case "preflight":
				os.Exit(exitcode.ValidationError)
			case "stage":
				os.Exit(exitcode.StageError)
			default:
				os.Exit(exitcode.FinalizeError)
			}
		}
		log.Error().Err(err).Msg("ingest failed")
		os.Exit(exitcode.FinalizeError)
	}

	fmt.Printf("Ingest complete: %d rows read, %d staged, %d upserted (%.1fs)\n",
		summary.RowsRead, summary.RowsStaged, summary.RowsUpserted,
		summary.DurationTotal.Seconds())
	if summary.RowsRejected > 0 {
		fmt.Printf("Rejected %d malformed rows:\n", summary.RowsRejected)
		for _, re := range summary.RowErrors {
			fmt.Printf("  row %d: %s\n", re.RowNumber, re.Reason)
		}
	}
	if summary.RowsCoerced > 0 {
		fmt.Printf("Coerced unparsable prices in %d rows (see log for details)\n", summary.RowsCoerced)
	}
	if summary.RowsUnclassified > 0 {
		fmt.Printf("%d rows stored as UNCLASSIFIED\n", summary.RowsUnclassified)
	}
	return nil
}
