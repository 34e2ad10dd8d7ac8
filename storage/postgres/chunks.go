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
)

// InsertChunks inserts a batch of chunks inside one transaction with
// insert-or-skip semantics on the identifier. Snapshot identifiers are
// authoritative; an identifier collision means the row is already
// present and is counted as skipped.
func (s *Store) InsertChunks(ctx context.Context, chunks []*core.Chunk) (int, int, error) {
	if len(chunks) == 0 {
		return 0, 0, nil
	}

	rows := make([]chunkRow, len(chunks))
	for i, chunk := range chunks {
		rows[i] = chunkToRow(chunk)
	}

	var written int
	err := s.withTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewInsert().
			Model(&rows).
			On("CONFLICT (id) DO NOTHING").
			Exec(ctx)
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

	return written, len(chunks) - written, nil
}

// InsertChunk inserts one chunk in its own transaction. Reports whether
// a row was written; false means the identifier was already present.
func (s *Store) InsertChunk(ctx context.Context, chunk *core.Chunk) (bool, error) {
	written, _, err := s.InsertChunks(ctx, []*core.Chunk{chunk})
	return written == 1, err
}
