package ai

import "context"

// Embedder generates vector embeddings from text. The importer calls it
// only when explicitly asked to backfill missing vectors; normal import
// runs move pre-computed vectors and never touch a model.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. Batch calls are more efficient than repeated EmbedText.
	// The returned slice contains embeddings in the same order as the
	// input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}
