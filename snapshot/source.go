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


package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-crypt/x/blake2b"
	"github.com/poiesic/vecport/core"
)

// Source reads record collections from a snapshot directory.
// It holds no open resources and is safe to call repeatedly.
type Source struct {
	dir    string
	logger *slog.Logger
}

// NewSource creates a Source for the snapshot directory at dir.
func NewSource(dir string) *Source {
	return &Source{
		dir:    dir,
		logger: slog.Default().With("component", "snapshot"),
	}
}

// Dir returns the snapshot directory path.
func (s *Source) Dir() string {
	return s.dir
}

// Chunks reads the full ordered chunk collection from the snapshot.
func (s *Source) Chunks() ([]*core.Chunk, error) {
	return readCollection[core.Chunk](s, core.CollectionChunks)
}

// Embeddings reads the full ordered embedding collection from the snapshot.
func (s *Source) Embeddings() ([]*core.Embedding, error) {
	return readCollection[core.Embedding](s, core.CollectionEmbeddings)
}

// Conversations reads the full ordered conversation collection from the snapshot.
func (s *Source) Conversations() ([]*core.Conversation, error) {
	return readCollection[core.Conversation](s, core.CollectionConversations)
}

// Digest returns the BLAKE2b-256 hex digest of a collection's artifact.
// The digest identifies the exact snapshot content in audit logs and
// binds resume-ledger markers to the snapshot they were written for.
func (s *Source) Digest(collection core.Collection) (string, error) {
	data, err := s.readArtifact(collection)
	if err != nil {
		return "", err
	}

	h, err := blake2b.New(32, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create digest: %w", err)
	}
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}

// path returns the artifact path for a collection.
func (s *Source) path(collection core.Collection) string {
	return filepath.Join(s.dir, string(collection)+".json")
}

func (s *Source) readArtifact(collection core.Collection) ([]byte, error) {
	data, err := os.ReadFile(s.path(collection))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", ErrSourceUnavailable, s.path(collection), err)
	}
	return data, nil
}

// readCollection deserializes one collection artifact. Malformed JSON is
// a source failure, not a record-level one: partial artifacts cannot be
// distinguished from truncated exports, so the whole run must abort.
func readCollection[T any](s *Source, collection core.Collection) ([]*T, error) {
	data, err := s.readArtifact(collection)
	if err != nil {
		return nil, err
	}

	var records []*T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %w", ErrSourceUnavailable, s.path(collection), err)
	}

	s.logger.Debug("snapshot collection loaded", "collection", collection, "records", len(records))
	return records, nil
}
