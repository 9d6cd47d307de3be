package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{1, 0}, nil
}

func (c *countingEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func TestRateLimitedEmbedder_Delegates(t *testing.T) {
	inner := &countingEmbedder{}
	e := NewRateLimitedEmbedder(inner, 1000, 10)

	v, err := e.EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, v)

	vs, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, vs, 2)
	assert.Equal(t, 2, inner.calls)
}

func TestRateLimitedEmbedder_HonorsContext(t *testing.T) {
	inner := &countingEmbedder{}
	// One token per hour: the first call drains the bucket.
	e := NewRateLimitedEmbedder(inner, 1.0/3600, 1)

	_, err := e.EmbedText(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = e.EmbedText(ctx, "second")
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls, "blocked call must not reach the provider")
}
