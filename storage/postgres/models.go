package postgres

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"

	"github.com/poiesic/vecport/core"
)

// chunkRow is the bun model for the chunks relation.
type chunkRow struct {
	bun.BaseModel `bun:"table:chunks,alias:c"`

	ID            int64     `bun:"id,pk"`
	Content       string    `bun:"content,notnull"`
	DocumentID    string    `bun:"document_id"`
	Page          int       `bun:"page"`
	ChunkIndex    int       `bun:"chunk_index"`
	Headings      []string  `bun:"headings,type:jsonb"`
	IsSubchunk    bool      `bun:"is_subchunk"`
	SubchunkIndex int       `bun:"subchunk_index"`
	WordCount     int       `bun:"word_count"`
	CharCount     int       `bun:"char_count"`
	CreatedAt     time.Time `bun:"created_at"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

// embeddingRow is the bun model for the embeddings relation. The
// embedding column is a fixed-width pgvector column; its width is part
// of the schema contract and checked by VerifySchema, not by this model.
type embeddingRow struct {
	bun.BaseModel `bun:"table:embeddings,alias:e"`

	// Identifiers carried over from a snapshot are inserted verbatim;
	// backfill rows leave ID zero so the sequence assigns one.
	ID        int64           `bun:"id,pk,autoincrement"`
	ChunkID   int64           `bun:"chunk_id,notnull"`
	Embedding pgvector.Vector `bun:"embedding,type:vector"`
	CreatedAt time.Time       `bun:"created_at"`
}

// conversationRow is the bun model for the conversations relation.
type conversationRow struct {
	bun.BaseModel `bun:"table:conversations,alias:cv"`

	ID                int64     `bun:"id,pk"`
	SessionID         string    `bun:"session_id"`
	UserMessage       string    `bun:"user_message"`
	AssistantResponse string    `bun:"assistant_response"`
	Sources           []string  `bun:"sources,type:jsonb"`
	Confidence        float64   `bun:"confidence"`
	DurationMS        float64   `bun:"duration_ms"`
	CreatedAt         time.Time `bun:"created_at"`
}

func chunkToRow(chunk *core.Chunk) chunkRow {
	return chunkRow{
		ID:            chunk.ID,
		Content:       chunk.Content,
		DocumentID:    chunk.DocumentID,
		Page:          chunk.Page,
		ChunkIndex:    chunk.ChunkIndex,
		Headings:      chunk.Headings,
		IsSubchunk:    chunk.IsSubchunk,
		SubchunkIndex: chunk.SubchunkIndex,
		WordCount:     chunk.WordCount,
		CharCount:     chunk.CharCount,
		CreatedAt:     chunk.CreatedAt,
		UpdatedAt:     chunk.UpdatedAt,
	}
}

func rowToChunk(row *chunkRow) *core.Chunk {
	return &core.Chunk{
		ID:            row.ID,
		Content:       row.Content,
		DocumentID:    row.DocumentID,
		Page:          row.Page,
		ChunkIndex:    row.ChunkIndex,
		Headings:      row.Headings,
		IsSubchunk:    row.IsSubchunk,
		SubchunkIndex: row.SubchunkIndex,
		WordCount:     row.WordCount,
		CharCount:     row.CharCount,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

func embeddingToRow(embedding *core.Embedding) embeddingRow {
	return embeddingRow{
		ID:        embedding.ID,
		ChunkID:   embedding.ChunkID,
		Embedding: pgvector.NewVector(embedding.Vector),
		CreatedAt: embedding.CreatedAt,
	}
}

func conversationToRow(conversation *core.Conversation) conversationRow {
	return conversationRow{
		ID:                conversation.ID,
		SessionID:         conversation.SessionID,
		UserMessage:       conversation.UserMessage,
		AssistantResponse: conversation.AssistantResponse,
		Sources:           conversation.Sources,
		Confidence:        conversation.Confidence,
		DurationMS:        conversation.DurationMS,
		CreatedAt:         conversation.CreatedAt,
	}
}
