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


package importer

import (
	"fmt"
	"time"

	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/storage"
)

// Config holds configuration for one import run.
type Config struct {
	// VectorDim is the target store's fixed vector width. Embedding
	// records of any other length are rejected before writing.
	VectorDim int

	// ChunkBatchSize is the batch size for chunk writes.
	ChunkBatchSize int

	// EmbeddingBatchSize is the batch size for embedding writes.
	// Smaller than the others because every row carries a full vector.
	EmbeddingBatchSize int

	// ConversationBatchSize is the batch size for conversation writes.
	ConversationBatchSize int

	// ConflictMode governs embedding chunk_id collisions: skip for
	// first imports, overwrite for backfill. Never mixed within a run.
	ConflictMode storage.ConflictMode

	// Resume consults the store's max-identifier checkpoint (and the
	// ledger, when one is attached) before writing embeddings, so a
	// re-run only processes the remaining tail of the snapshot.
	Resume bool

	// Strict aborts a collection on the first failed batch instead of
	// salvaging records individually.
	Strict bool

	// DryRun stops each collection after validation and reports
	// would-be counts without writing.
	DryRun bool

	// MaxRetries is the maximum number of attempts for transient store
	// failures.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// CallTimeout is the deadline applied to each store call.
	CallTimeout time.Duration

	// ReportInterval is how often to report progress (number of records).
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		VectorDim:             768,
		ChunkBatchSize:        200,
		EmbeddingBatchSize:    50,
		ConversationBatchSize: 200,
		ConflictMode:          storage.ConflictSkip,
		MaxRetries:            3,
		RetryDelay:            1 * time.Second,
		CallTimeout:           30 * time.Second,
		ReportInterval:        100,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.VectorDim <= 0 {
		return fmt.Errorf("%w: VectorDim must be positive", ErrInvalidConfig)
	}
	if c.ChunkBatchSize <= 0 || c.EmbeddingBatchSize <= 0 || c.ConversationBatchSize <= 0 {
		return fmt.Errorf("%w: batch sizes must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: MaxRetries must be positive", ErrInvalidConfig)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("%w: RetryDelay must be positive", ErrInvalidConfig)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("%w: CallTimeout must be positive", ErrInvalidConfig)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: ReportInterval must be positive", ErrInvalidConfig)
	}
	return nil
}

// batchSize returns the configured batch size for a collection.
func (c *Config) batchSize(collection core.Collection) int {
	switch collection {
	case core.CollectionEmbeddings:
		return c.EmbeddingBatchSize
	case core.CollectionConversations:
		return c.ConversationBatchSize
	default:
		return c.ChunkBatchSize
	}
}
