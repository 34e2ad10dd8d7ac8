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
	"database/sql"
	"errors"
	"fmt"

	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/storage"
)

// MaxID returns the maximum identifier present for a collection, with
// false when the relation is empty. The result is the collection's
// checkpoint: it is recomputed on every run and never persisted, which
// keeps the importer stateless across restarts.
func (s *Store) MaxID(ctx context.Context, collection core.Collection) (int64, bool, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, false, err
	}

	var max sql.NullInt64
	err = s.db.NewSelect().
		Table(table).
		ColumnExpr("max(id)").
		Scan(ctx, &max)
	if err != nil {
		return 0, false, classifyError(err)
	}

	if !max.Valid {
		return 0, false, nil
	}
	return max.Int64, true, nil
}

// Count returns the number of rows present for a collection.
func (s *Store) Count(ctx context.Context, collection core.Collection) (int64, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}

	count, err := s.db.NewSelect().Table(table).Count(ctx)
	if err != nil {
		return 0, classifyError(err)
	}
	return int64(count), nil
}

// ReconcileSequence sets the collection's identifier sequence to the
// maximum identifier present, so rows created later by the live
// application never reuse an imported identifier. When the relation is
// empty the sequence keeps its current value (a no-op). Idempotent.
func (s *Store) ReconcileSequence(ctx context.Context, collection core.Collection) (int64, error) {
	table, err := tableName(collection)
	if err != nil {
		return 0, err
	}

	maxID, present, err := s.MaxID(ctx, collection)
	if err != nil {
		return 0, err
	}
	if !present {
		s.logger.Debug("sequence reconcile skipped, relation empty", "collection", collection)
		return 0, nil
	}

	var value int64
	err = s.db.NewRaw(
		"SELECT setval(pg_get_serial_sequence(?, 'id'), ?)",
		table, maxID,
	).Scan(ctx, &value)
	if err != nil {
		return 0, classifyError(err)
	}

	s.logger.Debug("sequence reconciled", "collection", collection, "value", value)
	return value, nil
}

// VerifySchema checks the target schema contract before a run: the
// three relations exist and the embedding column is a fixed-width
// vector of exactly vectorDim. DDL is owned by the schema-creation
// step; on mismatch the importer refuses to run instead of migrating.
func (s *Store) VerifySchema(ctx context.Context, vectorDim int) error {
	for _, collection := range core.Collections() {
		table, err := tableName(collection)
		if err != nil {
			return err
		}

		var exists bool
		err = s.db.NewRaw("SELECT to_regclass(?) IS NOT NULL", table).Scan(ctx, &exists)
		if err != nil {
			return classifyError(err)
		}
		if !exists {
			return fmt.Errorf("%w: relation %q does not exist", storage.ErrSchemaMismatch, table)
		}
	}

	// pgvector stores the column width as the attribute's type modifier;
	// -1 means the column was declared without one.
	var width sql.NullInt64
	err := s.db.NewRaw(
		`SELECT a.atttypmod
		 FROM pg_attribute a
		 WHERE a.attrelid = 'embeddings'::regclass
		   AND a.attname = 'embedding'
		   AND NOT a.attisdropped`,
	).Scan(ctx, &width)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: embeddings.embedding column not found", storage.ErrSchemaMismatch)
	}
	if err != nil {
		return classifyError(err)
	}

	if !width.Valid {
		return fmt.Errorf("%w: embeddings.embedding column not found", storage.ErrSchemaMismatch)
	}
	if width.Int64 <= 0 {
		return fmt.Errorf("%w: embeddings.embedding has no fixed width", storage.ErrSchemaMismatch)
	}
	if int(width.Int64) != vectorDim {
		return fmt.Errorf("%w: embeddings.embedding is vector(%d), configured dimension is %d",
			storage.ErrSchemaMismatch, width.Int64, vectorDim)
	}

	return nil
}
