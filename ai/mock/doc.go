// Package mock provides test double implementations of AI service interfaces.
//
// MockEmbedder and MockProvider let tests run without an embedding service
// and make provider behavior deterministic.
//
// # Usage in Tests
//
//	// Deterministic 2-dimensional vectors
//	mockEmbedder := mock.NewMockEmbedder(2)
//
//	// Custom behavior injection
//	mockEmbedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
//	    return []float32{1.0, 0.0}, nil
//	}
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
// MockEmbedder returns unit-length vectors derived from an FNV hash of the text,
// so identical text always yields an identical vector.
package mock
