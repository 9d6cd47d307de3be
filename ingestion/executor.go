package ingestion

import (
	"context"
	"fmt"

	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

// Execute writes a classified batch: one bulk insert for the new rows, then
// one bulk update for the existing ones. An empty subset issues no call.
// The caller owns the transaction.
func Execute(ctx context.Context, session storage.Session, result *core.ClassificationResult) error {
	if len(result.ToInsert) > 0 {
		if err := session.InsertMany(ctx, result.ToInsert); err != nil {
			return fmt.Errorf("insert %d rows: %w", len(result.ToInsert), err)
		}
	}
	if len(result.ToUpdate) > 0 {
		if err := session.UpdateMany(ctx, result.ToUpdate); err != nil {
			return fmt.Errorf("update %d rows: %w", len(result.ToUpdate), err)
		}
	}
	return nil
}
