package openai

import (
	"testing"

	"github.com/poiesic/vectorsink/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider(t *testing.T) {
	t.Run("plain embedder", func(t *testing.T) {
		p, err := NewProvider(ai.DefaultConfig())
		require.NoError(t, err)
		defer p.Close()

		_, ok := p.Embedder().(*Embedder)
		assert.True(t, ok)
	})

	t.Run("rate limited embedder", func(t *testing.T) {
		p, err := NewProvider(ai.NewConfig(ai.WithRateLimit(5, 1)))
		require.NoError(t, err)
		defer p.Close()

		_, ok := p.Embedder().(*ai.RateLimitedEmbedder)
		assert.True(t, ok)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewProvider(ai.NewConfig(ai.WithEmbeddingModel("")))
		require.Error(t, err)
	})
}

func TestNewEmbedder_NormalizesHost(t *testing.T) {
	cfg := ai.NewConfig(ai.WithEmbeddingHost("http://localhost:11434"))
	e, err := NewEmbedder(cfg)
	require.NoError(t, err)
	assert.NotNil(t, e)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
}
