package storage

import (
	"context"
	"fmt"

	"github.com/poiesic/vecport/core"
)

// ConflictMode selects what happens when an embedding insert collides
// with the unique owning-chunk constraint. The two modes are mutually
// exclusive within one run.
type ConflictMode int

const (
	// ConflictSkip leaves the existing row untouched (first-import mode).
	ConflictSkip ConflictMode = iota
	// ConflictOverwrite replaces the existing vector (backfill mode).
	ConflictOverwrite
)

// String returns the mode name as used in configuration.
func (m ConflictMode) String() string {
	switch m {
	case ConflictSkip:
		return "skip"
	case ConflictOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("ConflictMode(%d)", int(m))
	}
}

// ParseConflictMode parses a configuration value into a ConflictMode.
func ParseConflictMode(s string) (ConflictMode, error) {
	switch s {
	case "skip":
		return ConflictSkip, nil
	case "overwrite":
		return ConflictOverwrite, nil
	default:
		return ConflictSkip, fmt.Errorf("invalid conflict mode %q: must be skip or overwrite", s)
	}
}

// ChunkStore persists content chunks. Batch inserts are transactional:
// a batch either fully commits or fully rolls back.
type ChunkStore interface {
	// InsertChunks inserts a batch with insert-or-skip semantics on the
	// identifier. Returns how many rows were written and how many were
	// skipped as duplicates.
	InsertChunks(ctx context.Context, chunks []*core.Chunk) (written, skipped int, err error)

	// InsertChunk inserts a single chunk in its own transaction.
	// Reports whether a row was written (false means duplicate-skip).
	InsertChunk(ctx context.Context, chunk *core.Chunk) (bool, error)
}

// EmbeddingStore persists embedding vectors.
type EmbeddingStore interface {
	// InsertEmbeddings inserts a batch under the given conflict mode.
	// A chunk_id collision is skipped or overwritten per mode; overwritten
	// rows count as written.
	InsertEmbeddings(ctx context.Context, embeddings []*core.Embedding, mode ConflictMode) (written, skipped int, err error)

	// InsertEmbedding inserts a single embedding in its own transaction.
	InsertEmbedding(ctx context.Context, embedding *core.Embedding, mode ConflictMode) (bool, error)

	// ChunksWithoutEmbeddings returns up to limit chunks that have no
	// embedding row, ordered by chunk identifier. Used by backfill.
	ChunksWithoutEmbeddings(ctx context.Context, limit int) ([]*core.Chunk, error)
}

// ConversationStore persists conversation records.
type ConversationStore interface {
	// InsertConversations inserts a batch with insert-or-skip semantics
	// on the identifier.
	InsertConversations(ctx context.Context, conversations []*core.Conversation) (written, skipped int, err error)

	// InsertConversation inserts a single conversation in its own transaction.
	InsertConversation(ctx context.Context, conversation *core.Conversation) (bool, error)
}

// StoreManager provides collection-level operations shared across the
// three record stores.
type StoreManager interface {
	// MaxID returns the maximum identifier present for a collection.
	// The boolean is false when the relation holds no rows; callers must
	// not interpret a zero identifier as "empty".
	MaxID(ctx context.Context, collection core.Collection) (int64, bool, error)

	// Count returns the number of rows present for a collection.
	Count(ctx context.Context, collection core.Collection) (int64, error)

	// ReconcileSequence sets the collection's identifier generator to the
	// maximum identifier present, so rows created later by the live
	// application never collide with imported identifiers. A no-op when
	// the relation is empty. Idempotent. Returns the value the sequence
	// was set to, or 0 for the no-op case.
	ReconcileSequence(ctx context.Context, collection core.Collection) (int64, error)

	// VerifySchema checks the target schema contract: the three relations
	// exist and the embedding column is a fixed-width vector of exactly
	// vectorDim. Returns an error wrapping ErrSchemaMismatch otherwise.
	// The importer never creates or migrates DDL.
	VerifySchema(ctx context.Context, vectorDim int) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// Store combines every storage operation the import pipeline needs.
// Implementations must be safe for sequential use from one goroutine;
// the pipeline owns the connection for the duration of a run.
type Store interface {
	ChunkStore
	EmbeddingStore
	ConversationStore
	StoreManager
}
