package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionsOrder(t *testing.T) {
	// Chunks must precede embeddings: the embedding uniqueness
	// constraint references chunk identifiers.
	collections := Collections()
	require.Len(t, collections, 3)
	assert.Equal(t, CollectionChunks, collections[0])
	assert.Equal(t, CollectionEmbeddings, collections[1])
	assert.Equal(t, CollectionConversations, collections[2])
}

func TestChunkJSONKeys(t *testing.T) {
	// Snapshot artifacts use snake_case keys.
	data := []byte(`{
		"id": 42,
		"content": "hello",
		"document_id": "doc-9",
		"page": 3,
		"chunk_index": 1,
		"headings": ["Intro", "Background"],
		"is_subchunk": true,
		"subchunk_index": 2,
		"word_count": 1,
		"char_count": 5
	}`)

	var chunk Chunk
	require.NoError(t, json.Unmarshal(data, &chunk))

	assert.Equal(t, int64(42), chunk.ID)
	assert.Equal(t, "hello", chunk.Content)
	assert.Equal(t, "doc-9", chunk.DocumentID)
	assert.Equal(t, []string{"Intro", "Background"}, chunk.Headings)
	assert.True(t, chunk.IsSubchunk)
	assert.Equal(t, 2, chunk.SubchunkIndex)
}

func TestEmbeddingJSONKeys(t *testing.T) {
	data := []byte(`{"id": 1, "chunk_id": 42, "vector": [0.1, 0.2, 0.3]}`)

	var embedding Embedding
	require.NoError(t, json.Unmarshal(data, &embedding))

	assert.Equal(t, int64(42), embedding.ChunkID)
	assert.Len(t, embedding.Vector, 3)
}

func TestConversationJSONKeys(t *testing.T) {
	data := []byte(`{
		"id": 8,
		"session_id": "sess-1",
		"user_message": "what is a chunk?",
		"assistant_response": "a unit of content",
		"sources": ["doc-9"],
		"confidence": 0.92,
		"duration_ms": 153.5
	}`)

	var conversation Conversation
	require.NoError(t, json.Unmarshal(data, &conversation))

	assert.Equal(t, "sess-1", conversation.SessionID)
	assert.Equal(t, 0.92, conversation.Confidence)
	assert.Equal(t, 153.5, conversation.DurationMS)
}
