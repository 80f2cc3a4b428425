package anomaly

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/toonshi/pharmiliar/internal/config"
	"github.com/toonshi/pharmiliar/internal/model"
	"github.com/toonshi/pharmiliar/internal/store"
)

// Scan loads records matching the filter, runs the detector battery, and
// persists the findings under a fresh analysis run ID.
func Scan(ctx context.Context, st *store.Store, log zerolog.Logger, filter store.Filter, th config.DetectorThresholds) (*model.AnalysisSummary, []model.Finding, error) {
	start := time.Now()

	records, err := st.ListServices(ctx, filter)
	if err != nil {
		return nil, nil, fmt.Errorf("load records: %w", err)
	}

	runID := uuid.New()
	findings := Run(records, th, log)

	if _, err := st.SaveFindings(ctx, runID, findings); err != nil {
		return nil, nil, fmt.Errorf("persist findings: %w", err)
	}

	byKind := make(map[model.FindingKind]int64)
	for _, f := range findings {
		byKind[f.Kind]++
	}

	return &model.AnalysisSummary{
		RunID:          runID.String(),
		RecordsScanned: int64(len(records)),
		FindingCount:   int64(len(findings)),
		FindingsByKind: byKind,
		Duration:       time.Since(start),
	}, findings, nil
}
