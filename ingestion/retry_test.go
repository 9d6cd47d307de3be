package ingestion

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/poiesic/vectorsink/ai/mock"
	"github.com/poiesic/vectorsink/core"
	"github.com/poiesic/vectorsink/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return nil
	}, 3, 10*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, 5, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return expectedErr
	}, 3, time.Millisecond)
	assert.Equal(t, expectedErr, err, "should return the original error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_Permanent(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), func() error {
		attempts++
		return Permanent(errBoom)
	}, 5, time.Millisecond)
	assert.Equal(t, errBoom, err)
	assert.Equal(t, 1, attempts)
	assert.NoError(t, Permanent(nil))
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	}, 10, time.Millisecond)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts, "should stop when context is canceled")
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), func() error { return nil }, 0, time.Millisecond)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"provider", fmt.Errorf("%w: timeout", ErrProvider), true},
		{"store", &BatchError{Err: fmt.Errorf("%w: commit", ErrStore)}, true},
		{"dimension mismatch", fmt.Errorf("%w: 3 != 2", ErrDimensionMismatch), false},
		{"validation", &BatchError{Err: fmt.Errorf("%w: empty", ErrValidation)}, false},
		{"canceled provider call", fmt.Errorf("%w: %w", ErrProvider, context.Canceled), false},
		{"deadline", context.DeadlineExceeded, false},
		{"unknown", errBoom, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestIngestWithRetry_RecoversFromTransientFailure(t *testing.T) {
	ctx := context.Background()
	store, err := memory.NewStore(2)
	require.NoError(t, err)

	failures := 1
	embedder := mock.NewMockEmbedder(2)
	embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if text == "content 3" && failures > 0 {
			failures--
			return nil, errBoom
		}
		return []float32{0, 1}, nil
	}
	p := newTestPipeline(t, store, embedder, WithBatchSize(2))

	sources := 0
	source := func() iter.Seq[core.Document] {
		sources++
		return docsOf(numbered(5)...)
	}

	report, err := IngestWithRetry(ctx, p, source, 3, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempts)
	assert.Equal(t, 2, sources)
	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 2, report.Updated, "the first attempt's committed batch is upserted again")

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestIngestWithRetry_StopsOnPermanentFailure(t *testing.T) {
	store, err := memory.NewStore(2)
	require.NoError(t, err)
	embedder := constantEmbedder(1, 0, 0)
	p := newTestPipeline(t, store, embedder)

	report, err := IngestWithRetry(context.Background(), p, func() iter.Seq[core.Document] {
		return docsOf(doc("a", "x"))
	}, 5, time.Millisecond)

	assert.ErrorIs(t, err, ErrDimensionMismatch)
	var batchErr *BatchError
	assert.ErrorAs(t, err, &batchErr)
	assert.Equal(t, 1, report.Attempts)
}

func TestIngestWithRetry_ExhaustsAttempts(t *testing.T) {
	store := &testStore{session: &testSession{commitErr: errBoom}, dimension: 2}
	p := newTestPipeline(t, store, constantEmbedder(1, 0))

	report, err := IngestWithRetry(context.Background(), p, func() iter.Seq[core.Document] {
		return docsOf(doc("a", "x"))
	}, 3, time.Millisecond)

	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, 3, report.Attempts)
	assert.Zero(t, report.Processed)
}
