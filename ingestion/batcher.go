package ingestion

import (
	"fmt"
	"iter"

	"github.com/poiesic/vectorsink/core"
)

// Batches groups a lazy document sequence into slices of size documents.
// Only the last batch may be shorter, and no batch is ever empty; an empty
// input yields nothing. At most one batch is buffered, and upstream is not
// pulled further once the consumer stops. Each yielded slice is fresh, so
// consumers may keep it.
func Batches(docs iter.Seq[core.Document], size int) iter.Seq[[]core.Document] {
	if size < 1 {
		size = 1
	}
	return func(yield func([]core.Document) bool) {
		batch := make([]core.Document, 0, size)
		for doc := range docs {
			batch = append(batch, doc)
			if len(batch) == size {
				if !yield(batch) {
					return
				}
				batch = make([]core.Document, 0, size)
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}

// validator passes documents through until the first invalid one, which
// it records instead of yielding.
type validator struct {
	rejected error
	identity string
}

func (v *validator) filter(docs iter.Seq[core.Document]) iter.Seq[core.Document] {
	return func(yield func(core.Document) bool) {
		for doc := range docs {
			if err := core.ValidateDocument(&doc); err != nil {
				v.rejected = fmt.Errorf("%w: %w", ErrValidation, err)
				v.identity = doc.Identity
				return
			}
			if !yield(doc) {
				return
			}
		}
	}
}
