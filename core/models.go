package core

import "time"

// Collection identifies one of the record collections moved by an import run.
type Collection string

const (
	// CollectionChunks holds content chunks.
	CollectionChunks Collection = "chunks"
	// CollectionEmbeddings holds vector embeddings, one per chunk.
	CollectionEmbeddings Collection = "embeddings"
	// CollectionConversations holds logged conversation exchanges.
	CollectionConversations Collection = "conversations"
)

// Collections returns all collections in import dependency order.
// Chunks come before embeddings because the embedding uniqueness
// constraint references chunk identifiers; conversations are
// independent and go last.
func Collections() []Collection {
	return []Collection{CollectionChunks, CollectionEmbeddings, CollectionConversations}
}

// Chunk is an immutable unit of source content. Identifiers are
// source-assigned and preserved verbatim; they are the join key
// for embeddings.
type Chunk struct {
	ID            int64     `json:"id"`
	Content       string    `json:"content"`
	DocumentID    string    `json:"document_id"`
	Page          int       `json:"page"`
	ChunkIndex    int       `json:"chunk_index"`
	Headings      []string  `json:"headings"`
	IsSubchunk    bool      `json:"is_subchunk"`
	SubchunkIndex int       `json:"subchunk_index"`
	WordCount     int       `json:"word_count"`
	CharCount     int       `json:"char_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Embedding is a fixed-length vector associated with exactly one chunk.
// At most one embedding exists per chunk.
type Embedding struct {
	ID        int64     `json:"id"`
	ChunkID   int64     `json:"chunk_id"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is one logged exchange between a user and the assistant.
// SessionID is an external session identifier and is not unique;
// multiple turns share it. The record identifier is the natural key.
type Conversation struct {
	ID                int64     `json:"id"`
	SessionID         string    `json:"session_id"`
	UserMessage       string    `json:"user_message"`
	AssistantResponse string    `json:"assistant_response"`
	Sources           []string  `json:"sources"`
	Confidence        float64   `json:"confidence"`
	DurationMS        float64   `json:"duration_ms"`
	CreatedAt         time.Time `json:"created_at"`
}
