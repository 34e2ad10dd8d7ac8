package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateChunk(t *testing.T) {
	tests := []struct {
		name    string
		chunk   *Chunk
		wantErr error
	}{
		{
			name: "valid chunk",
			chunk: &Chunk{
				ID:         1,
				Content:    "some content",
				DocumentID: "doc-1",
			},
			wantErr: nil,
		},
		{
			name:    "nil chunk",
			chunk:   nil,
			wantErr: ErrInvalidChunk,
		},
		{
			name:    "zero identifier",
			chunk:   &Chunk{Content: "text"},
			wantErr: ErrInvalidID,
		},
		{
			name:    "negative identifier",
			chunk:   &Chunk{ID: -5, Content: "text"},
			wantErr: ErrInvalidID,
		},
		{
			name:    "empty content",
			chunk:   &Chunk{ID: 3},
			wantErr: ErrEmptyContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChunk(tt.chunk)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEmbedding(t *testing.T) {
	tests := []struct {
		name      string
		embedding *Embedding
		dim       int
		wantErr   error
	}{
		{
			name:      "matching dimension",
			embedding: &Embedding{ID: 1, ChunkID: 1, Vector: make([]float32, 384)},
			dim:       384,
			wantErr:   nil,
		},
		{
			name:      "short vector",
			embedding: &Embedding{ID: 1, ChunkID: 1, Vector: make([]float32, 300)},
			dim:       384,
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "long vector",
			embedding: &Embedding{ID: 1, ChunkID: 1, Vector: make([]float32, 768)},
			dim:       384,
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "empty vector is a dimension mismatch",
			embedding: &Embedding{ID: 1, ChunkID: 1, Vector: []float32{}},
			dim:       384,
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "nil vector is a dimension mismatch",
			embedding: &Embedding{ID: 1, ChunkID: 1},
			dim:       384,
			wantErr:   ErrDimensionMismatch,
		},
		{
			name:      "nil embedding",
			embedding: nil,
			dim:       384,
			wantErr:   ErrInvalidEmbedding,
		},
		{
			name:      "missing chunk identifier",
			embedding: &Embedding{ID: 1, Vector: make([]float32, 384)},
			dim:       384,
			wantErr:   ErrInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEmbedding(tt.embedding, tt.dim)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateConversation(t *testing.T) {
	err := ValidateConversation(&Conversation{ID: 7, SessionID: "s-1"})
	assert.NoError(t, err)

	err = ValidateConversation(nil)
	assert.ErrorIs(t, err, ErrInvalidConversation)

	err = ValidateConversation(&Conversation{SessionID: "s-1"})
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestParseCollection(t *testing.T) {
	for _, c := range Collections() {
		parsed, err := ParseCollection(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, parsed)
	}

	_, err := ParseCollection("documents")
	assert.ErrorIs(t, err, ErrUnknownCollection)
}
