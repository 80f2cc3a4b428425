package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/toonshi/pharmiliar/internal/store"
)

// Cleanup deletes staging rows for the given batch.
func Cleanup(ctx context.Context, st *store.Store, log zerolog.Logger, batchID uuid.UUID) error {
	start := time.Now()

	deleted, err := st.DeleteStagingBatch(ctx, batchID)
	if err != nil {
		return err
	}

	log.Info().
		Int64("rows_deleted", deleted).
		Dur("duration", time.Since(start)).
		Msg("staging cleanup complete")

	return nil
}
