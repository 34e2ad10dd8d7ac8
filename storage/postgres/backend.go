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
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/storage"
)

// Store implements storage.Store against PostgreSQL.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithQueryLogging enables bundebug query logging on the connection.
// Intended for debugging runs; queries carry full vector payloads and
// the output is large.
func WithQueryLogging() Option {
	return func(s *Store) {
		s.db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
}

// Open connects to the target store at dsn and verifies the connection.
//
// Returns storage.Store interface to enforce abstraction.
func Open(ctx context.Context, dsn string, opts ...Option) (storage.Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	store := newStore(db)
	for _, opt := range opts {
		opt(store)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", storage.ErrConnectionFailed, err)
	}

	return store, nil
}

// NewStore wraps an existing bun.DB. The caller keeps ownership of the
// underlying connection lifecycle when constructing this way.
func NewStore(db *bun.DB, opts ...Option) storage.Store {
	store := newStore(db)
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func newStore(db *bun.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "postgres"),
	}
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, translating driver errors into
// the storage sentinel taxonomy.
func (s *Store) withTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, fn)
	return classifyError(err)
}

// tableName maps a collection to its relation name. The schema is a
// fixed contract; the importer never creates these relations.
func tableName(collection core.Collection) (string, error) {
	switch collection {
	case core.CollectionChunks:
		return "chunks", nil
	case core.CollectionEmbeddings:
		return "embeddings", nil
	case core.CollectionConversations:
		return "conversations", nil
	default:
		return "", fmt.Errorf("%w: %q", core.ErrUnknownCollection, collection)
	}
}
