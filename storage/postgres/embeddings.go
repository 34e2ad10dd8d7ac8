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


package postgres

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/storage"
)

// InsertEmbeddings inserts a batch of embeddings inside one transaction.
// The unique constraint on chunk_id governs conflicts: skip mode leaves
// existing rows untouched, overwrite mode replaces the vector and its
// creation timestamp. Overwritten rows count as written.
func (s *Store) InsertEmbeddings(ctx context.Context, embeddings []*core.Embedding, mode storage.ConflictMode) (int, int, error) {
	if len(embeddings) == 0 {
		return 0, 0, nil
	}

	rows := make([]embeddingRow, len(embeddings))
	for i, embedding := range embeddings {
		rows[i] = embeddingToRow(embedding)
	}

	var written int
	err := s.withTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		query := tx.NewInsert().Model(&rows)
		if mode == storage.ConflictOverwrite {
			query = query.
				On("CONFLICT (chunk_id) DO UPDATE").
				Set("embedding = EXCLUDED.embedding").
				Set("created_at = EXCLUDED.created_at")
		} else {
			query = query.On("CONFLICT (chunk_id) DO NOTHING")
		}

		res, err := query.Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		written = int(affected)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	return written, len(embeddings) - written, nil
}

// InsertEmbedding inserts one embedding in its own transaction.
func (s *Store) InsertEmbedding(ctx context.Context, embedding *core.Embedding, mode storage.ConflictMode) (bool, error) {
	written, _, err := s.InsertEmbeddings(ctx, []*core.Embedding{embedding}, mode)
	return written == 1, err
}

// ChunksWithoutEmbeddings returns up to limit chunks that have no
// embedding row yet, ordered by chunk identifier. Backfill uses this to
// find remaining work between write rounds.
func (s *Store) ChunksWithoutEmbeddings(ctx context.Context, limit int) ([]*core.Chunk, error) {
	var rows []chunkRow
	err := s.db.NewSelect().
		Model(&rows).
		Join("LEFT JOIN embeddings AS e ON e.chunk_id = c.id").
		Where("e.id IS NULL").
		OrderExpr("c.id").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, classifyError(err)
	}

	chunks := make([]*core.Chunk, len(rows))
	for i := range rows {
		chunks[i] = rowToChunk(&rows[i])
	}
	return chunks, nil
}
