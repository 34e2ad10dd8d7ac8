// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - ID must be positive (snapshot identifiers are source-assigned)
//   - Content must not be empty
//
// NOT validated:
//   - Positional metadata (pages and indices may legitimately be zero)
//   - Timestamps (snapshots may predate the importer)
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidID)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	return nil
}

// ValidateEmbedding validates an Embedding against the target
// dimensionality. A vector whose length differs from dim is rejected
// with an error wrapping ErrDimensionMismatch; an empty vector is a
// dimension mismatch, not a distinct error kind. Rejection is never
// fatal to a run; callers count rejects separately from write failures.
func ValidateEmbedding(embedding *Embedding, dim int) error {
	if embedding == nil {
		return fmt.Errorf("%w: embedding is nil", ErrInvalidEmbedding)
	}

	if embedding.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidEmbedding, ErrInvalidID)
	}

	if embedding.ChunkID <= 0 {
		return fmt.Errorf("%w: chunk %w", ErrInvalidEmbedding, ErrInvalidID)
	}

	if len(embedding.Vector) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(embedding.Vector), dim)
	}

	return nil
}

// ValidateConversation validates a Conversation according to domain rules.
//
// Validation rules:
//   - ID must be positive (the identifier is the natural key)
//
// NOT validated:
//   - SessionID (not unique, may be empty for legacy records)
//   - Confidence and DurationMS (observed snapshots contain zeros)
func ValidateConversation(conversation *Conversation) error {
	if conversation == nil {
		return fmt.Errorf("%w: conversation is nil", ErrInvalidConversation)
	}

	if conversation.ID <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConversation, ErrInvalidID)
	}

	return nil
}

// ParseCollection validates a collection name and returns it as a Collection.
func ParseCollection(name string) (Collection, error) {
	switch Collection(name) {
	case CollectionChunks, CollectionEmbeddings, CollectionConversations:
		return Collection(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCollection, name)
	}
}
