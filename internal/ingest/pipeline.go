// Package ingest runs the tariff migration pipeline:
// preflight → stage → finalize → cleanup.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/store"
)

// PipelineError wraps an error with the phase where it occurred.
type PipelineError struct {
	Phase string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Phase, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// Run executes the full migration pipeline for one tariff file. Row-level
// problems (malformed rows, coerced prices, unclassified records) never
// abort the run; they are aggregated into the summary. Only structural
// failures return an error.
func Run(ctx context.Context, st *store.Store, log zerolog.Logger, cfg *config.Config, rules *config.Rules) (*model.IngestSummary, error) {
	totalStart := time.Now()

	log.Info().Str("file", cfg.FilePath).Msg("starting preflight")
	pf, err := Preflight(ctx, st, log, cfg.FilePath, cfg.Force)
	if err != nil {
		return nil, &PipelineError{Phase: "preflight", Err: err}
	}

	if pf.AlreadyLoaded {
		log.Info().
			Int64("source_file_id", pf.SourceFileID).
			Str("sha256", pf.FileSHA256).
			Msg("file already loaded, skipping (use --force to re-import)")
		return &model.IngestSummary{
			FilePath:      pf.FilePath,
			FileSHA256:    pf.FileSHA256,
			SourceFileID:  pf.SourceFileID,
			IngestBatchID: pf.IngestBatchID.String(),
			DurationTotal: time.Since(totalStart),
		}, nil
	}

	log.Info().Msg("starting staging")
	if err := st.UpdateSourceStatus(ctx, pf.SourceFileID, store.StatusStaging); err != nil {
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	stageResult, err := Stage(ctx, st, log, pf, rules)
	if err != nil {
		_ = st.UpdateSourceStatus(ctx, pf.SourceFileID, store.StatusFailed)
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	if err := st.UpdateSourceStatus(ctx, pf.SourceFileID, store.StatusStaged); err != nil {
		return nil, &PipelineError{Phase: "stage", Err: err}
	}

	log.Info().Msg("finalizing")
	finalizeResult, err := Finalize(ctx, st, log, pf)
	if err != nil {
		_ = st.UpdateSourceStatus(ctx, pf.SourceFileID, store.StatusFailed)
		return nil, &PipelineError{Phase: "finalize", Err: err}
	}

	if !cfg.KeepStaging {
		log.Info().Msg("cleaning up staging")
		if err := Cleanup(ctx, st, log, pf.IngestBatchID); err != nil {
			log.Warn().Err(err).Msg("staging cleanup failed (non-fatal)")
		}
	}

	summary := &model.IngestSummary{
		FilePath:         pf.FilePath,
		FileSHA256:       pf.FileSHA256,
		SourceFileID:     pf.SourceFileID,
		IngestBatchID:    pf.IngestBatchID.String(),
		RowsRead:         stageResult.RowsRead,
		RowsDropped:      stageResult.RowsDropped,
		RowsRejected:     stageResult.RowsRejected,
		RowsCoerced:      stageResult.RowsCoerced,
		RowsUnclassified: stageResult.RowsUnclassified,
		RowsStaged:       stageResult.RowsStaged,
		RowsUpserted:     finalizeResult.RowsUpserted,
		RowErrors:        stageResult.RowErrors,
		DurationStage:    stageResult.Duration,
		DurationFinalize: finalizeResult.Duration,
		DurationTotal:    time.Since(totalStart),
	}

	log.Info().
		Int64("rows_read", summary.RowsRead).
		Int64("rows_staged", summary.RowsStaged).
		Int64("rows_upserted", summary.RowsUpserted).
		Int64("rows_rejected", summary.RowsRejected).
		Int64("rows_coerced", summary.RowsCoerced).
		Int64("rows_unclassified", summary.RowsUnclassified).
		Str("total_duration", summary.DurationTotal.String()).
		Msg("migration pipeline complete")

	return summary, nil
}
