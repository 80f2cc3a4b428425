// Package store persists cleaned, classified service records in Postgres
// and serves the query patterns the anomaly engine and external consumers
// need: upsert from staging, and reads filtered by department, service type
// and rate range.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/toonshi/pharmiliar/internal/model"
	embedsql "github.com/toonshi/pharmiliar/internal/sql"
)

// Source file lifecycle statuses.
const (
	StatusPending = "pending"
	StatusStaging = "staging"
	StatusStaged  = "staged"
	StatusLoaded  = "loaded"
	StatusFailed  = "failed"
)

// Store wraps a pgx pool with the tariff persistence operations.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := newPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool; the caller keeps ownership of it.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RegisterSourceFile records the file in the ingest registry, deduplicated
// by content hash. alreadyLoaded is true when the same bytes were fully
// loaded before and force is off, so the pipeline can skip the file.
func (s *Store) RegisterSourceFile(ctx context.Context, fileName, sha256 string, sizeBytes int64, force bool) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx, embedsql.RegisterSourceFile, fileName, sha256, sizeBytes).Scan(&id)
	if err == nil {
		return id, false, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, false, fmt.Errorf("register source file: %w", err)
	}

	// ON CONFLICT DO NOTHING returned no row: the hash is already known.
	var status string
	if err := s.pool.QueryRow(ctx, embedsql.LookupSourceFile, sha256).Scan(&id, &status); err != nil {
		return 0, false, fmt.Errorf("lookup source file: %w", err)
	}
	if !force && status == StatusLoaded {
		return id, true, nil
	}
	if err := s.UpdateSourceStatus(ctx, id, StatusPending); err != nil {
		return 0, false, fmt.Errorf("reset source status: %w", err)
	}
	return id, false, nil
}

// UpdateSourceStatus advances the source file's lifecycle status.
func (s *Store) UpdateSourceStatus(ctx context.Context, sourceFileID int64, status string) error {
	_, err := s.pool.Exec(ctx, embedsql.UpdateSourceStatus, sourceFileID, status)
	return err
}

// CopyStagingRows bulk-loads staged rows via the COPY protocol.
func (s *Store) CopyStagingRows(ctx context.Context, src pgx.CopyFromSource) (int64, error) {
	return s.pool.CopyFrom(ctx,
		pgx.Identifier{"ingest", "stage_service_rows"},
		model.StagingColumns(),
		src,
	)
}

// RecordPriceHistory snapshots prior rates for services whose staged rates
// differ, returning the number of history rows written.
func (s *Store) RecordPriceHistory(ctx context.Context, batchID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, embedsql.RecordPriceHistory, batchID)
	if err != nil {
		return 0, fmt.Errorf("record price history: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpsertServices moves the staged batch into the serving table, keyed by
// code. Returns the number of rows inserted or updated.
func (s *Store) UpsertServices(ctx context.Context, batchID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, embedsql.UpsertServices, batchID)
	if err != nil {
		return 0, fmt.Errorf("upsert services: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteStagingBatch removes the batch's staging rows after finalize.
func (s *Store) DeleteStagingBatch(ctx context.Context, batchID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx, embedsql.DeleteStagingBatch, batchID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AnalyzeServices refreshes planner statistics after a bulk load.
func (s *Store) AnalyzeServices(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "ANALYZE tariff.services"); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, "ANALYZE ingest.stage_service_rows")
	return err
}

// Filter narrows a ListServices read. Nil fields are unconstrained.
type Filter struct {
	Department  *model.Department
	ServiceType *model.ServiceType
	MinRate     *float64
	MaxRate     *float64
}

// ListServices reads service records matching the filter, ordered by code.
func (s *Store) ListServices(ctx context.Context, f Filter) ([]model.ServiceRecord, error) {
	var dept, svcType *string
	if f.Department != nil {
		v := string(*f.Department)
		dept = &v
	}
	if f.ServiceType != nil {
		v := string(*f.ServiceType)
		svcType = &v
	}

	rows, err := s.pool.Query(ctx, embedsql.ListServices, dept, svcType, f.MinRate, f.MaxRate)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	var records []model.ServiceRecord
	for rows.Next() {
		var (
			rec          model.ServiceRecord
			department   string
			serviceType  string
			coercedTiers *string
		)
		if err := rows.Scan(
			&rec.Code, &rec.Description, &department, &serviceType,
			&rec.NormalRate, &rec.SpecialRate, &rec.NonEARate,
			&rec.GLAccount, &rec.VariantType, &coercedTiers,
		); err != nil {
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		rec.Department = model.Department(department)
		rec.ServiceType = model.ServiceType(serviceType)
		rec.CoercedTiers = parseCoercedTiers(coercedTiers)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return records, nil
}

// SaveFindings bulk-writes one analysis run's findings.
func (s *Store) SaveFindings(ctx context.Context, runID uuid.UUID, findings []model.Finding) (int64, error) {
	if len(findings) == 0 {
		return 0, nil
	}
	values := make([][]any, len(findings))
	for i, f := range findings {
		values[i] = []any{runID, f.Code, string(f.Kind), f.Severity, f.Explanation}
	}
	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"analysis", "findings"},
		[]string{"analysis_run_id", "service_code", "kind", "severity", "explanation"},
		pgx.CopyFromRows(values),
	)
	if err != nil {
		return 0, fmt.Errorf("save findings: %w", err)
	}
	return n, nil
}

// ListFindings reads one run's findings, ranked by severity then code. This
// is the iterator the reporting and advisory consumers read from.
func (s *Store) ListFindings(ctx context.Context, runID uuid.UUID) ([]model.Finding, error) {
	rows, err := s.pool.Query(ctx, embedsql.ListFindings, runID)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	var findings []model.Finding
	for rows.Next() {
		var f model.Finding
		var kind string
		if err := rows.Scan(&f.Code, &kind, &f.Severity, &f.Explanation); err != nil {
			return nil, fmt.Errorf("scan finding row: %w", err)
		}
		f.Kind = model.FindingKind(kind)
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	return findings, nil
}

func parseCoercedTiers(joined *string) []model.RateTier {
	if joined == nil || *joined == "" {
		return nil
	}
	parts := strings.Split(*joined, ",")
	tiers := make([]model.RateTier, 0, len(parts))
	for _, p := range parts {
		tiers = append(tiers, model.RateTier(p))
	}
	return tiers
}
