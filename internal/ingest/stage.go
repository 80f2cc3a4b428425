package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/toonshi/pharmiliar/internal/classify"
	"github.com/toonshi/pharmiliar/internal/clean"
	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/store"
	"github.com/toonshi/pharmiliar/internal/tabular"
)

const stageChannelDepth = 1024

// StageResult holds metrics from the staging phase.
type StageResult struct {
	RowsRead         int64
	RowsDropped      int64
	RowsRejected     int64
	RowsCoerced      int64
	RowsUnclassified int64
	RowsStaged       int64
	RowErrors        []model.RowError
	Duration         time.Duration
}

// Stage streams rows from the tariff file through clean+classify and
// COPY-loads the survivors into the staging table via a channel-backed
// CopyFromSource.
func Stage(ctx context.Context, st *store.Store, log zerolog.Logger, pf *PreflightResult, rules *config.Rules) (*StageResult, error) {
	start := time.Now()

	reader, err := tabular.Open(pf.FilePath)
	if err != nil {
		return nil, fmt.Errorf("stage open: %w", err)
	}
	defer reader.Close()

	catalog, err := classify.NewCatalog(rules.Departments, rules.ServiceTypes)
	if err != nil {
		return nil, fmt.Errorf("stage catalog: %w", err)
	}
	cleaner := clean.New(rules.Cleaning)

	ch := make(chan *model.StagingRow, stageChannelDepth)
	errCh := make(chan error, 1)

	result := &StageResult{}

	// Producer goroutine: read → clean → classify → push to channel.
	go func() {
		defer close(ch)
		for {
			row, readErr := reader.Read()
			if readErr == io.EOF {
				break
			}
			if readErr != nil {
				errCh <- fmt.Errorf("read source at row %d: %w", result.RowsRead+1, readErr)
				return
			}
			result.RowsRead++

			rec, coercions, cleanErr := cleaner.CleanRow(row)
			if cleanErr != nil {
				if errors.Is(cleanErr, clean.ErrEmptyRow) {
					result.RowsDropped++
					continue
				}
				var rowErr *clean.RowError
				if errors.As(cleanErr, &rowErr) {
					result.RowsRejected++
					result.RowErrors = append(result.RowErrors, model.RowError{
						RowNumber: rowErr.RowNumber,
						Reason:    rowErr.Reason,
					})
					log.Warn().Int64("row", rowErr.RowNumber).Str("reason", rowErr.Reason).Msg("row rejected")
					continue
				}
				errCh <- fmt.Errorf("clean row %d: %w", row.Number, cleanErr)
				return
			}

			if len(coercions) > 0 {
				result.RowsCoerced++
				for _, c := range coercions {
					log.Warn().
						Int64("row", c.RowNumber).
						Str("tier", string(c.Tier)).
						Str("raw", c.Raw).
						Msg("unparsable price coerced to default")
				}
			}

			rec.Department, rec.ServiceType = catalog.Classify(rec.Description)
			if rec.Department == model.DeptUnclassified && rec.ServiceType == model.TypeUnclassified {
				result.RowsUnclassified++
			}

			staging := model.NewStagingRow(rec, pf.IngestBatchID, pf.SourceFileID, row.Number)
			select {
			case ch <- staging:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		errCh <- nil
	}()

	// Consumer: COPY from channel into the staging table.
	source := store.NewChannelSource(ch)
	rowsStaged, copyErr := st.CopyStagingRows(ctx, source)

	// Wait for the producer to finish before reading its counters.
	prodErr := <-errCh
	if prodErr != nil {
		return nil, fmt.Errorf("stage producer: %w", prodErr)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("stage copy: %w", copyErr)
	}
	result.RowsStaged = rowsStaged

	result.Duration = time.Since(start)
	log.Info().
		Int64("rows_read", result.RowsRead).
		Int64("rows_staged", result.RowsStaged).
		Int64("rows_dropped", result.RowsDropped).
		Int64("rows_rejected", result.RowsRejected).
		Int64("rows_coerced", result.RowsCoerced).
		Int64("rows_unclassified", result.RowsUnclassified).
		Str("duration", result.Duration.String()).
		Msg("staging complete")

	return result, nil
}
