package model

import "time"

// RowError records a malformed source row that was rejected during cleaning.
// Rejections never abort the run; they are collected and reported at the end.
type RowError struct {
	RowNumber int64
	Reason    string
}

// IngestSummary captures metrics from a single tariff file ingest run.
type IngestSummary struct {
	FilePath      string
	FileSHA256    string
	SourceFileID  int64
	IngestBatchID string

	RowsRead         int64
	RowsDropped      int64 // effectively empty rows, silently skipped
	RowsRejected     int64 // malformed rows, see RowErrors
	RowsCoerced      int64 // rows with at least one coerced rate tier
	RowsUnclassified int64 // rows with no department keyword match
	RowsStaged       int64
	RowsUpserted     int64

	RowErrors []RowError

	DurationStage    time.Duration
	DurationFinalize time.Duration
	DurationTotal    time.Duration
}

// AnalysisSummary captures metrics from one anomaly engine run.
type AnalysisSummary struct {
	RunID          string
	RecordsScanned int64
	FindingCount   int64
	FindingsByKind map[FindingKind]int64
	Duration       time.Duration
}
