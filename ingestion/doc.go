// Package ingestion turns a stream of documents into committed rows.
//
// A Pipeline draws documents lazily, groups them into batches and, for each
// batch in turn:
//   - embeds every member through an ai.Embedder
//   - checks every vector against the store's dimension
//   - classifies members as inserts or updates inside the batch's transaction
//   - writes both subsets with the store's upsert and commits
//
// Batches commit independently. A failure stops the call, rolls back only
// the failing batch and reports it as a *BatchError; earlier batches remain.
// Because every write is an upsert keyed by identity, re-running the same
// input converges to the same rows. IngestWithRetry layers that re-run on
// top with exponential backoff for transient provider and store failures.
package ingestion
