// Package mock provides a test double implementation of ai.Embedder.
//
// The mock allows tests to run without an external embedding service
// and produces deterministic vectors, so tests can assert on exact
// values and dimensionality.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder(384)
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("service down")
//	}
package mock
