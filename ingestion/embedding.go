package ingestion

import (
	"context"
	"fmt"
	"sync"

	"github.com/poiesic/vectorsink/ai"
	"github.com/poiesic/vectorsink/core"
)

// embedBatch turns drawn documents into a Batch. Every vector is in hand
// and checked against the store's dimension before the batch is returned;
// nothing is truncated or padded.
func (p *Pipeline) embedBatch(ctx context.Context, index int, docs []core.Document) (*core.Batch, error) {
	vectors, err := p.embedAll(ctx, docs)
	if err != nil {
		return nil, err
	}

	batch := &core.Batch{
		Index:     index,
		Documents: make([]core.EmbeddedDocument, len(docs)),
	}
	for i := range docs {
		doc := &docs[i]
		metadata, err := core.SerializeMetadata(doc.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
		vector := vectors[i]
		if p.normalize {
			vector = ai.NormalizeVector(vector)
		}
		if len(vector) != p.dimension {
			return nil, fmt.Errorf("%w: document %q: got %d dimensions, want %d",
				ErrDimensionMismatch, doc.Identity, len(vector), p.dimension)
		}
		batch.Documents[i] = core.EmbeddedDocument{
			Identity: doc.Identity,
			Content:  doc.Content,
			Metadata: metadata,
			Vector:   vector,
		}
	}
	return batch, nil
}

// embedAll returns one vector per document, in document order.
func (p *Pipeline) embedAll(ctx context.Context, docs []core.Document) ([][]float32, error) {
	switch {
	case p.bulkEmbedding:
		return p.embedBulk(ctx, docs)
	case p.embeddingPool != nil:
		return p.embedConcurrent(ctx, docs)
	default:
		return p.embedSequential(ctx, docs)
	}
}

func (p *Pipeline) embedSequential(ctx context.Context, docs []core.Document) ([][]float32, error) {
	vectors := make([][]float32, len(docs))
	for i := range docs {
		if err := ctx.Err(); err != nil {
			return nil, providerError(docs[i].Identity, err)
		}
		v, err := p.embedder.EmbedText(ctx, docs[i].Content)
		if err != nil {
			return nil, providerError(docs[i].Identity, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// embedConcurrent fans the batch out over the worker pool. The first
// failure cancels the calls still in flight and is the one reported.
func (p *Pipeline) embedConcurrent(ctx context.Context, docs []core.Document) ([][]float32, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	vectors := make([][]float32, len(docs))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	for i := range docs {
		wg.Add(1)
		err := p.embeddingPool.Submit(func() {
			defer wg.Done()
			v, err := p.embedder.EmbedText(ctx, docs[i].Content)
			if err != nil {
				fail(providerError(docs[i].Identity, err))
				return
			}
			vectors[i] = v
		})
		if err != nil {
			wg.Done()
			fail(providerError(docs[i].Identity, err))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return vectors, nil
}

// embedBulk sends the whole batch in one request.
func (p *Pipeline) embedBulk(ctx context.Context, docs []core.Document) ([][]float32, error) {
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}
	vectors, err := p.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("%w: expected %d vectors, received %d", ErrProvider, len(docs), len(vectors))
	}
	return vectors, nil
}

func providerError(identity string, err error) error {
	return fmt.Errorf("%w: document %q: %w", ErrProvider, identity, err)
}
