package ingestion

import (
	"context"

	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

// Classify splits a batch into documents new to the store and documents
// that already exist, with one existence check per distinct identity. The
// checks run inside the session's transaction. A repeated identity is
// classified as an update after its first occurrence, so the counts match
// the rows the batch leaves behind.
//
// The result only drives counts and logging. The store's upsert keeps the
// rows correct even when a concurrent writer makes a classification stale.
// Any failed check fails the whole batch; no partial result is returned.
func Classify(ctx context.Context, session storage.Session, batch *core.Batch) (*core.ClassificationResult, error) {
	result := &core.ClassificationResult{}
	seen := make(map[string]struct{}, batch.Len())

	for _, doc := range batch.Documents {
		if _, dup := seen[doc.Identity]; dup {
			result.ToUpdate = append(result.ToUpdate, doc)
			continue
		}
		seen[doc.Identity] = struct{}{}

		exists, err := session.Exists(ctx, doc.Identity)
		if err != nil {
			return nil, err
		}
		if exists {
			result.ToUpdate = append(result.ToUpdate, doc)
		} else {
			result.ToInsert = append(result.ToInsert, doc)
		}
	}
	return result, nil
}
