package ingestion

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreRequired is returned when a store is not provided.
	ErrStoreRequired = errors.New("store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrInvalidBatchSize is returned for a batch size outside 1..MaxBatchSize.
	ErrInvalidBatchSize = errors.New("invalid batch size")

	// ErrInvalidWorkers is returned for a non-positive embedding worker count.
	ErrInvalidWorkers = errors.New("invalid embedding worker count")

	// ErrInvalidMaxAttempts is returned when retry is configured with no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be positive")

	// ErrValidation wraps a document rejected before batching.
	ErrValidation = errors.New("validation failed")

	// ErrProvider wraps a failed or timed out embedding call.
	ErrProvider = errors.New("embedding provider failed")

	// ErrDimensionMismatch reports a vector of the wrong length. It is a
	// provider error: errors.Is(ErrDimensionMismatch, ErrProvider) holds.
	ErrDimensionMismatch = fmt.Errorf("%w: embedding dimension mismatch", ErrProvider)

	// ErrStore wraps a failed open, existence check, write or commit.
	ErrStore = errors.New("store operation failed")
)

// BatchError describes the batch an ingestion call failed on.
// Batches before Index were committed; Index and later were not.
type BatchError struct {
	// Index is the zero-based position of the failed batch, or -1 when
	// the failure happened before any batch (opening the session).
	Index int

	// Key is a short fingerprint of Identities.
	Key string

	// Identities lists the members of the failed batch in input order.
	Identities []string

	// Stage is the pipeline state the failure occurred in.
	Stage State

	// Err is the underlying error.
	Err error
}

func (e *BatchError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("ingestion failed while %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("batch %d (%s, %d documents) failed while %s: %v",
		e.Index, e.Key, len(e.Identities), e.Stage, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
