package ingestion

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/vectorsink/ai"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage"
)

const (
	// DefaultBatchSize is the number of documents committed per transaction
	// unless WithBatchSize says otherwise.
	DefaultBatchSize = 128

	// MaxBatchSize bounds a single multi-row statement.
	MaxBatchSize = 4096
)

// Pipeline embeds documents and upserts them into a store, one committed
// transaction per batch. A Pipeline may serve several Ingest calls at
// once; each call gets its own session.
type Pipeline struct {
	store         storage.Store
	embedder      ai.Embedder
	dimension     int
	batchSize     int
	workers       int
	normalize     bool
	bulkEmbedding bool
	embeddingPool *ants.Pool
	monitor       Monitor
	logger        *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithBatchSize sets how many documents are embedded and committed together.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 || size > MaxBatchSize {
			return fmt.Errorf("%w: %d (must be 1..%d)", ErrInvalidBatchSize, size, MaxBatchSize)
		}
		p.batchSize = size
		return nil
	}
}

// WithEmbeddingWorkers sets how many embedding calls run at once within a
// batch. Default is 1, which embeds documents one after another.
func WithEmbeddingWorkers(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: %d", ErrInvalidWorkers, n)
		}
		p.workers = n
		return nil
	}
}

// WithNormalize scales every vector to unit length before it is checked
// and stored.
func WithNormalize(normalize bool) Option {
	return func(p *Pipeline) error {
		p.normalize = normalize
		return nil
	}
}

// WithBulkEmbedding embeds each batch with a single EmbedTexts request.
// Worker settings are ignored when enabled.
func WithBulkEmbedding(bulk bool) Option {
	return func(p *Pipeline) error {
		p.bulkEmbedding = bulk
		return nil
	}
}

// WithMonitor sets an observer for state transitions and committed batches.
func WithMonitor(monitor Monitor) Option {
	return func(p *Pipeline) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates an ingestion pipeline writing to store. Vectors must
// have exactly store.Dimension() components.
func NewPipeline(store storage.Store, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		store:     store,
		embedder:  embedder,
		dimension: store.Dimension(),
		batchSize: DefaultBatchSize,
		workers:   1,
		monitor:   &noopMonitor{},
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")

	if p.workers > 1 && !p.bulkEmbedding {
		pool, err := ants.NewPool(p.workers)
		if err != nil {
			return nil, err
		}
		p.embeddingPool = pool
	}

	return p, nil
}

// BatchSize returns the configured batch size.
func (p *Pipeline) BatchSize() int {
	return p.batchSize
}

// Ingest draws documents from docs, embeds them and upserts them, one
// transaction per batch. Batches run strictly in order and each is
// committed before the next is drawn, so when a batch fails every earlier
// batch stays durable. The failing batch is rolled back and the error is a
// *BatchError naming it. The report always counts exactly the committed
// batches. Re-running Ingest with the same documents is safe.
func (p *Pipeline) Ingest(ctx context.Context, docs iter.Seq[core.Document]) (report *Report, err error) {
	start := time.Now()
	report = &Report{Attempts: 1}
	r := &run{pipeline: p, state: StateIdle}
	defer func() {
		report.Duration = time.Since(start)
		p.monitor.Finished(report, err)
	}()

	r.transition(StateOpening)
	session, err := p.store.Open(ctx)
	if err != nil {
		r.transition(StateFailed)
		p.logger.Error("failed to open session", "err", err)
		return report, &BatchError{
			Index: -1,
			Stage: StateOpening,
			Err:   fmt.Errorf("%w: open session: %w", ErrStore, err),
		}
	}
	defer func() {
		r.transition(StateClosing)
		session.Close()
		if err != nil {
			r.transition(StateFailed)
		} else {
			r.transition(StateDone)
		}
	}()

	v := &validator{}
	index := 0
	for drawn := range Batches(v.filter(docs), p.batchSize) {
		r.transition(StateBatching)
		if v.rejected != nil {
			// The drawn documents share a batch with the rejected one.
			return report, r.fail(ctx, session, index, identitiesOf(drawn, v.identity), v.rejected)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return report, r.fail(ctx, session, index, identitiesOf(drawn), ctxErr)
		}

		inserted, updated, batchErr := r.ingestBatch(ctx, session, index, drawn)
		if batchErr != nil {
			return report, batchErr
		}
		report.add(inserted, updated)
		p.monitor.BatchCommitted(index, inserted, updated)
		p.logger.Debug("batch committed", "batch", index, "inserted", inserted, "updated", updated)
		index++
	}

	if v.rejected != nil {
		r.transition(StateBatching)
		return report, r.fail(ctx, session, index, []string{v.identity}, v.rejected)
	}

	p.logger.Info("ingestion complete",
		"processed", report.Processed,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"batches", report.Batches)
	return report, nil
}

// Release releases the embedding worker pool. The pipeline should not be
// used after calling Release.
func (p *Pipeline) Release() {
	if p.embeddingPool != nil {
		p.embeddingPool.Release()
	}
}

// run tracks the state of one Ingest call.
type run struct {
	pipeline *Pipeline
	state    State
}

func (r *run) transition(to State) {
	from := r.state
	r.state = to
	r.pipeline.monitor.StateChanged(from, to)
}

// ingestBatch takes one batch from drawn documents to a committed
// transaction and returns its classification counts.
func (r *run) ingestBatch(ctx context.Context, session storage.Session, index int, drawn []core.Document) (int, int, error) {
	p := r.pipeline

	r.transition(StateEmbedding)
	batch, err := p.embedBatch(ctx, index, drawn)
	if err != nil {
		return 0, 0, r.fail(ctx, session, index, identitiesOf(drawn), err)
	}

	r.transition(StateClassifying)
	result, err := Classify(ctx, session, batch)
	if err != nil {
		return 0, 0, r.fail(ctx, session, index, batch.Identities(), storeError("classify", err))
	}

	r.transition(StateWriting)
	if err := Execute(ctx, session, result); err != nil {
		return 0, 0, r.fail(ctx, session, index, batch.Identities(), storeError("write", err))
	}

	r.transition(StateCommitting)
	if err := session.Commit(ctx); err != nil {
		return 0, 0, r.fail(ctx, session, index, batch.Identities(), storeError("commit", err))
	}

	return len(result.ToInsert), len(result.ToUpdate), nil
}

// fail rolls back the current transaction and builds the error for the
// batch at index. The rollback ignores cancellation of ctx so a canceled
// call still releases its transaction.
func (r *run) fail(ctx context.Context, session storage.Session, index int, identities []string, err error) error {
	p := r.pipeline
	if rbErr := session.Rollback(context.WithoutCancel(ctx)); rbErr != nil {
		p.logger.Warn("rollback failed", "batch", index, "err", rbErr)
	}

	batchErr := &BatchError{
		Index:      index,
		Key:        core.BatchKey(identities),
		Identities: identities,
		Stage:      r.state,
		Err:        err,
	}
	p.logger.Error("batch failed",
		"batch", index,
		"key", batchErr.Key,
		"stage", r.state.String(),
		"documents", len(identities),
		"err", err)
	return batchErr
}

func storeError(op string, err error) error {
	if errors.Is(err, ErrStore) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStore, op, err)
}

func identitiesOf(docs []core.Document, extra ...string) []string {
	ids := make([]string, 0, len(docs)+len(extra))
	for i := range docs {
		ids = append(ids, docs[i].Identity)
	}
	return append(ids, extra...)
}
