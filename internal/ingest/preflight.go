package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/toonshi/pharmiliar/internal/clean"
	"github.com/toonshi/pharmiliar/internal/store"
	"github.com/toonshi/pharmiliar/internal/tabular"
)

// PreflightResult holds all context resolved during the preflight phase.
type PreflightResult struct {
	FilePath   string
	FileSHA256 string
	FileSize   int64
	// Columns are the normalized header names, validated to include a
	// description column and at least one rate tier.
	Columns []string
	// SourceFileID is the registry key for this file, deduplicated by hash.
	SourceFileID int64
	// IngestBatchID tags every staged row of this run.
	IngestBatchID uuid.UUID
	// AlreadyLoaded is true when this exact file content was fully loaded
	// before and force mode is off.
	AlreadyLoaded bool
}

// Preflight hashes the file, validates its header structure, and registers
// it in the source file registry. Structural problems here are fatal for the
// run; nothing has been written yet besides the registry row.
func Preflight(ctx context.Context, st *store.Store, log zerolog.Logger, filePath string, force bool) (*PreflightResult, error) {
	start := time.Now()

	sha, err := clean.FileHash(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight hash: %w", err)
	}

	stat, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight stat: %w", err)
	}

	reader, err := tabular.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("preflight open: %w", err)
	}
	defer reader.Close()

	columns := reader.Columns()
	if err := tabular.ValidateColumns(columns); err != nil {
		return nil, fmt.Errorf("preflight validate: %w", err)
	}

	sourceFileID, alreadyLoaded, err := st.RegisterSourceFile(ctx, filepath.Base(filePath), sha, stat.Size(), force)
	if err != nil {
		return nil, fmt.Errorf("preflight register file: %w", err)
	}

	log.Info().
		Str("file", filepath.Base(filePath)).
		Str("sha256", sha).
		Int64("size_bytes", stat.Size()).
		Strs("columns", columns).
		Dur("duration", time.Since(start)).
		Msg("preflight complete")

	return &PreflightResult{
		FilePath:      filePath,
		FileSHA256:    sha,
		FileSize:      stat.Size(),
		Columns:       columns,
		SourceFileID:  sourceFileID,
		IngestBatchID: uuid.New(),
		AlreadyLoaded: alreadyLoaded,
	}, nil
}
