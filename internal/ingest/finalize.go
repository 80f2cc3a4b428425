package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/toonshi/pharmiliar/internal/store"
)

// FinalizeResult holds metrics from the staging→serving upsert.
type FinalizeResult struct {
	RowsUpserted int64
	HistoryRows  int64
	Duration     time.Duration
}

// Finalize snapshots changed prices into the history table, upserts the
// staged batch into tariff.services, marks the source file loaded, and
// refreshes planner statistics.
func Finalize(ctx context.Context, st *store.Store, log zerolog.Logger, pf *PreflightResult) (*FinalizeResult, error) {
	start := time.Now()

	historyRows, err := st.RecordPriceHistory(ctx, pf.IngestBatchID)
	if err != nil {
		return nil, fmt.Errorf("price history: %w", err)
	}
	if historyRows > 0 {
		log.Info().Int64("history_rows", historyRows).Msg("prior rates snapshotted")
	}

	upserted, err := st.UpsertServices(ctx, pf.IngestBatchID)
	if err != nil {
		return nil, fmt.Errorf("upsert services: %w", err)
	}

	if err := st.UpdateSourceStatus(ctx, pf.SourceFileID, store.StatusLoaded); err != nil {
		return nil, fmt.Errorf("mark loaded: %w", err)
	}

	if err := st.AnalyzeServices(ctx); err != nil {
		return nil, fmt.Errorf("analyze services: %w", err)
	}

	dur := time.Since(start)
	log.Info().
		Int64("rows_upserted", upserted).
		Str("duration", dur.String()).
		Msg("finalize complete")

	return &FinalizeResult{
		RowsUpserted: upserted,
		HistoryRows:  historyRows,
		Duration:     dur,
	}, nil
}
