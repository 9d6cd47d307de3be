package ingestion

import "time"

// Report summarizes an ingestion call. On failure it reflects exactly the
// batches that committed before the failing one.
type Report struct {
	Processed int // Documents in committed batches
	Inserted  int // Of those, classified as new
	Updated   int // Of those, classified as existing
	Batches   int // Committed batches
	Attempts  int // Ingest calls made (more than one only under IngestWithRetry)
	Duration  time.Duration
}

// add folds one committed batch into the report.
func (r *Report) add(inserted, updated int) {
	r.Inserted += inserted
	r.Updated += updated
	r.Processed += inserted + updated
	r.Batches++
}
