package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/toonshi/pharmiliar/internal/classify"
	"github.com/toonshi/pharmiliar/internal/clean"
	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/exitcode"
	"github.com/toonshi/pharmiliar/internal/logging"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/tabular"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Dry-run cleaning and classification stats (no writes)",
	RunE:  runPlan,
}

func init() {
	planCmd.Flags().StringVar(&cfg.FilePath, "file", "", "Path to tariff file (required)")
	_ = planCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	log := logging.Setup(cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(exitcode.UsageError)
	}

	rules, err := config.LoadRules(cfg.RulesPath)
	if err != nil {
		log.Error().Err(err).Msg("ruleset loading failed")
		os.Exit(exitcode.UsageError)
	}

	sha, err := clean.FileHash(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to hash file")
		os.Exit(exitcode.ValidationError)
	}

	reader, err := tabular.Open(cfg.FilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to open tariff file")
		os.Exit(exitcode.ValidationError)
	}
	defer reader.Close()

	if err := tabular.ValidateColumns(reader.Columns()); err != nil {
		log.Error().Err(err).Msg("header validation failed")
		os.Exit(exitcode.ValidationError)
	}

	catalog, err := classify.NewCatalog(rules.Departments, rules.ServiceTypes)
	if err != nil {
		log.Error().Err(err).Msg("catalog compilation failed")
		os.Exit(exitcode.UsageError)
	}
	cleaner := clean.New(rules.Cleaning)

	var rowsRead, dropped, rejected, coerced, unclassified int64
	deptCounts := make(map[model.Department]int64)
	typeCounts := make(map[model.ServiceType]int64)

	for {
		row, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			log.Error().Err(readErr).Msg("failed to read rows")
			os.Exit(exitcode.ValidationError)
		}
		rowsRead++

		rec, coercions, cleanErr := cleaner.CleanRow(row)
		if cleanErr != nil {
			if errors.Is(cleanErr, clean.ErrEmptyRow) {
				dropped++
			} else {
				rejected++
			}
			continue
		}
		if len(coercions) > 0 {
			coerced++
		}

		dept, svcType := catalog.Classify(rec.Description)
		deptCounts[dept]++
		typeCounts[svcType]++
		if dept == model.DeptUnclassified && svcType == model.TypeUnclassified {
			unclassified++
		}
	}

	fmt.Println("=== tariffload plan ===")
	fmt.Printf("File:         %s\n", cfg.FilePath)
	fmt.Printf("SHA-256:      %s\n", sha)
	fmt.Printf("Rows read:    %d\n", rowsRead)
	fmt.Printf("Dropped:      %d (empty)\n", dropped)
	fmt.Printf("Rejected:     %d (malformed)\n", rejected)
	fmt.Printf("Coerced:      %d rows with unparsable prices\n", coerced)
	fmt.Printf("Unclassified: %d\n", unclassified)
	fmt.Println()
	fmt.Println("Department distribution:")
	for _, dept := range append(model.AllDepartments, model.DeptUnclassified) {
		if n := deptCounts[dept]; n > 0 {
			fmt.Printf("  %-15s %6d\n", dept, n)
		}
	}
	fmt.Println("Service type distribution:")
	for _, st := range append(model.AllServiceTypes, model.TypeUnclassified) {
		if n := typeCounts[st]; n > 0 {
			fmt.Printf("  %-15s %6d\n", st, n)
		}
	}
	fmt.Println("Header validation: OK")

	return nil
}
