package openai

import (
	"log/slog"

	"github.com/poiesic/vectorsink/ai"
)

// Provider implements ai.AIProvider using an OpenAI-compatible service.
type Provider struct {
	config   *ai.Config
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewProvider creates a new AI provider with an OpenAI-compatible embedder.
// The config is validated and normalized before use. When
// config.RequestsPerSecond is positive the embedder is rate limited.
//
// Returns ai.AIProvider interface (not *Provider) to enforce abstraction
// and prevent coupling to OpenAI-specific implementation details.
func NewProvider(config *ai.Config) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("component", "openai-provider")

	var e ai.Embedder = embedder
	if config.RequestsPerSecond > 0 {
		logger.Debug("rate limiting embedder", "rps", config.RequestsPerSecond, "burst", config.Burst)
		e = ai.NewRateLimitedEmbedder(embedder, config.RequestsPerSecond, config.Burst)
	}

	return &Provider{
		config:   config,
		embedder: e,
		logger:   logger,
	}, nil
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
