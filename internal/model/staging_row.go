package model

import (
	"strings"

	"github.com/google/uuid"
)

// StagingRow is the DB-ready representation of a cleaned, classified service
// line, tagged with its ingest batch for the later set-based upsert.
type StagingRow struct {
	IngestBatchID   uuid.UUID
	SourceFileID    int64
	SourceRowNumber int64

	Code        string
	Description string
	Department  string
	ServiceType string

	NormalRate  float64
	SpecialRate float64
	NonEARate   float64

	GLAccount   *string
	VariantType *string

	// Comma-joined tier column names whose values were coerced, nil when none.
	CoercedTiers *string
}

// NewStagingRow converts a cleaned ServiceRecord into its staging form.
func NewStagingRow(rec *ServiceRecord, batchID uuid.UUID, sourceFileID, rowNum int64) *StagingRow {
	s := &StagingRow{
		IngestBatchID:   batchID,
		SourceFileID:    sourceFileID,
		SourceRowNumber: rowNum,
		Code:            rec.Code,
		Description:     rec.Description,
		Department:      string(rec.Department),
		ServiceType:     string(rec.ServiceType),
		NormalRate:      rec.NormalRate,
		SpecialRate:     rec.SpecialRate,
		NonEARate:       rec.NonEARate,
		GLAccount:       rec.GLAccount,
		VariantType:     rec.VariantType,
	}
	if len(rec.CoercedTiers) > 0 {
		names := make([]string, len(rec.CoercedTiers))
		for i, t := range rec.CoercedTiers {
			names[i] = string(t)
		}
		joined := strings.Join(names, ",")
		s.CoercedTiers = &joined
	}
	return s
}

// StagingColumns returns the ordered column names for COPY into
// ingest.stage_service_rows.
func StagingColumns() []string {
	return []string{
		"ingest_batch_id",
		"source_file_id",
		"source_row_number",
		"code",
		"description",
		"department",
		"service_type",
		"normal_rate",
		"special_rate",
		"non_ea_rate",
		"gl_account",
		"variant_type",
		"coerced_tiers",
	}
}

// CopyValues returns the row values in StagingColumns() order, suitable for
// pgx CopyFromSource.
func (r *StagingRow) CopyValues() []any {
	return []any{
		r.IngestBatchID,
		r.SourceFileID,
		r.SourceRowNumber,
		r.Code,
		r.Description,
		r.Department,
		r.ServiceType,
		r.NormalRate,
		r.SpecialRate,
		r.NonEARate,
		r.GLAccount,
		r.VariantType,
		r.CoercedTiers,
	}
}
