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


package backfill

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/vecport/ai"
	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/importer"
	"github.com/poiesic/vecport/storage"
)

// Config holds configuration for one backfill run.
type Config struct {
	// VectorDim is the store's fixed vector width. Vectors of any other
	// length coming back from the embedder are rejected, never written.
	VectorDim int

	// FetchSize is how many missing chunks to pull from the store per page.
	FetchSize int

	// EmbedBatchSize is how many texts go into one embedder call. Each
	// call is one unit of work on the generation pool.
	EmbedBatchSize int

	// ConflictMode governs collisions with embedding rows that appear
	// between the fetch and the write.
	ConflictMode storage.ConflictMode

	// Limit caps how many chunks this run processes. Zero means all.
	Limit int

	// MaxRetries is the maximum number of attempts per embedder or store call.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff.
	RetryDelay time.Duration

	// CallTimeout is the deadline applied to each embedder and store call.
	CallTimeout time.Duration

	// ReportInterval is how often to report progress (number of chunks).
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		VectorDim:      768,
		FetchSize:      100,
		EmbedBatchSize: 16,
		ConflictMode:   storage.ConflictSkip,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		CallTimeout:    30 * time.Second,
		ReportInterval: 100,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.VectorDim <= 0 {
		return fmt.Errorf("%w: VectorDim must be positive", ErrInvalidConfig)
	}
	if c.FetchSize <= 0 || c.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: fetch and embed batch sizes must be positive", ErrInvalidConfig)
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: Limit must not be negative", ErrInvalidConfig)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: MaxRetries must be positive", ErrInvalidConfig)
	}
	if c.RetryDelay <= 0 || c.CallTimeout <= 0 {
		return fmt.Errorf("%w: RetryDelay and CallTimeout must be positive", ErrInvalidConfig)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: ReportInterval must be positive", ErrInvalidConfig)
	}
	return nil
}

// Result summarizes a backfill run.
type Result struct {
	// Scanned is how many missing chunks the run considered.
	Scanned int `json:"scanned"`
	// Written rows were inserted (or overwritten).
	Written int `json:"written"`
	// Skipped rows collided with an existing embedding in skip mode.
	Skipped int `json:"skipped"`
	// Rejected vectors came back with the wrong width.
	Rejected int `json:"rejected"`
	// Failed chunks exhausted the embedder retry budget.
	Failed int `json:"failed"`

	ElapsedSeconds float64 `json:"elapsed_seconds"`
}

// Backfiller finds chunks without embeddings and fills the gap through
// an embedder. Generation runs on a worker pool; store writes stay
// sequential on the single connection.
type Backfiller struct {
	store    storage.Store
	embedder ai.Embedder
	pool     *ants.Pool
	config   *Config
	progress io.Writer
	logger   *slog.Logger
}

// Option configures a Backfiller.
type Option func(*Backfiller) error

// WithPoolSize sets the worker pool size for concurrent generation.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(b *Backfiller) error {
		if size < 1 {
			size = 1
		}

		if b.pool != nil {
			b.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		b.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backfiller) error {
		if logger == nil {
			logger = slog.Default()
		}
		b.logger = logger
		return nil
	}
}

// NewBackfiller creates a backfiller.
// progress: where to write progress output (typically os.Stderr)
func NewBackfiller(store storage.Store, embedder ai.Embedder, config *Config, progress io.Writer, opts ...Option) (*Backfiller, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	b := &Backfiller{
		store:    store,
		embedder: embedder,
		pool:     pool,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "backfill"),
	}

	for _, opt := range opts {
		if optErr := opt(b); optErr != nil {
			b.Release()
			return nil, optErr
		}
	}

	return b, nil
}

// Release releases the worker pool.
// The backfiller should not be used after calling Release.
func (b *Backfiller) Release() {
	if b.pool != nil {
		b.pool.Release()
	}
}

// transient matches store errors worth another attempt, including
// dropped connections, which escalate only after the retry budget.
func transient(err error) bool {
	return errors.Is(err, storage.ErrTransientFailure) ||
		errors.Is(err, storage.ErrConnectionFailed)
}

// Run executes the backfill. Chunks whose generation fails are counted
// and left without an embedding; store write failures abort the run.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}
	defer func() {
		result.ElapsedSeconds = time.Since(start).Seconds()
	}()

	tracker, err := b.newTracker(ctx)
	if err != nil {
		return result, err
	}
	if tracker != nil {
		tracker.Start()
	}

	// Chunks that already failed generation stay in the store's
	// missing set, so each fetch over-reads by the failure count and
	// filters them out. An empty filtered page means the run is done.
	failed := make(map[int64]struct{})

	for {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		page, err := b.fetchPage(ctx, failed, result.Scanned)
		if err != nil {
			return result, fmt.Errorf("fetching chunks without embeddings: %w", err)
		}
		if len(page) == 0 {
			break
		}

		vectors := b.generate(ctx, page)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		now := time.Now().UTC()
		embeddings := make([]*core.Embedding, 0, len(page))
		for i, vector := range vectors {
			switch {
			case vector == nil:
				failed[page[i].ID] = struct{}{}
				result.Failed++
			case len(vector) != b.config.VectorDim:
				b.logger.Warn("embedder returned wrong vector width",
					"chunkID", page[i].ID, "got", len(vector), "want", b.config.VectorDim)
				failed[page[i].ID] = struct{}{}
				result.Rejected++
			default:
				embeddings = append(embeddings, &core.Embedding{
					ChunkID:   page[i].ID,
					Vector:    vector,
					CreatedAt: now,
				})
			}
		}
		result.Scanned += len(page)

		if len(embeddings) > 0 {
			written, skipped, err := b.write(ctx, embeddings)
			if err != nil {
				return result, fmt.Errorf("writing embeddings: %w", err)
			}
			result.Written += written
			result.Skipped += skipped
		}

		if tracker != nil {
			tracker.Increment(len(page))
		}
		if b.config.Limit > 0 && result.Scanned >= b.config.Limit {
			break
		}
	}

	if tracker != nil {
		tracker.Finish()
	}

	b.logger.Info("backfill complete",
		"scanned", result.Scanned,
		"written", result.Written,
		"skipped", result.Skipped,
		"rejected", result.Rejected,
		"failed", result.Failed)
	return result, nil
}

// fetchPage pulls the next page of chunks without embeddings, skipping
// chunks that already failed this run.
func (b *Backfiller) fetchPage(ctx context.Context, failed map[int64]struct{}, scanned int) ([]*core.Chunk, error) {
	fetchLimit := b.config.FetchSize + len(failed)

	var page []*core.Chunk
	err := importer.RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
		defer cancel()

		var err error
		page, err = b.store.ChunksWithoutEmbeddings(callCtx, fetchLimit)
		return err
	}, b.config.MaxRetries, b.config.RetryDelay, transient)
	if err != nil {
		return nil, err
	}

	filtered := page[:0]
	for _, chunk := range page {
		if _, skip := failed[chunk.ID]; skip {
			continue
		}
		filtered = append(filtered, chunk)
		if len(filtered) == b.config.FetchSize {
			break
		}
	}

	if b.config.Limit > 0 {
		remaining := b.config.Limit - scanned
		if remaining < len(filtered) {
			filtered = filtered[:remaining]
		}
	}
	return filtered, nil
}

// generate produces one vector per chunk on the worker pool. A nil
// entry marks a chunk whose generation failed after retries.
func (b *Backfiller) generate(ctx context.Context, chunks []*core.Chunk) [][]float32 {
	vectors := make([][]float32, len(chunks))

	var wg sync.WaitGroup
	for groupStart := 0; groupStart < len(chunks); groupStart += b.config.EmbedBatchSize {
		groupEnd := groupStart + b.config.EmbedBatchSize
		if groupEnd > len(chunks) {
			groupEnd = len(chunks)
		}
		group := chunks[groupStart:groupEnd]
		offset := groupStart

		wg.Add(1)
		err := b.pool.Submit(func() {
			defer wg.Done()

			texts := make([]string, len(group))
			for i, chunk := range group {
				texts[i] = chunk.Content
			}

			var generated [][]float32
			err := importer.RetryWithBackoff(ctx, func() error {
				callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
				defer cancel()

				var err error
				generated, err = b.embedder.EmbedTexts(callCtx, texts)
				return err
			}, b.config.MaxRetries, b.config.RetryDelay, nil)
			if err != nil {
				b.logger.Warn("embedding generation failed",
					"chunks", len(group), "error", err)
				return
			}

			for i := range group {
				if i < len(generated) {
					vectors[offset+i] = generated[i]
				}
			}
		})
		if err != nil {
			wg.Done()
			b.logger.Error("failed to submit generation task", "error", err)
		}
	}

	wg.Wait()
	return vectors
}

// write inserts a page's embeddings in one transactional batch.
func (b *Backfiller) write(ctx context.Context, embeddings []*core.Embedding) (int, int, error) {
	var written, skipped int
	err := importer.RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
		defer cancel()

		var err error
		written, skipped, err = b.store.InsertEmbeddings(callCtx, embeddings, b.config.ConflictMode)
		return err
	}, b.config.MaxRetries, b.config.RetryDelay, transient)
	return written, skipped, err
}

// newTracker sizes a progress tracker from the store's current missing
// count, capped by the run's limit.
func (b *Backfiller) newTracker(ctx context.Context) (*importer.ProgressTracker, error) {
	if b.progress == nil {
		return nil, nil
	}

	var chunkCount, embeddingCount int64
	err := importer.RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, b.config.CallTimeout)
		defer cancel()

		var err error
		if chunkCount, err = b.store.Count(callCtx, core.CollectionChunks); err != nil {
			return err
		}
		embeddingCount, err = b.store.Count(callCtx, core.CollectionEmbeddings)
		return err
	}, b.config.MaxRetries, b.config.RetryDelay, transient)
	if err != nil {
		return nil, err
	}

	total := int(chunkCount - embeddingCount)
	if total < 0 {
		total = 0
	}
	if b.config.Limit > 0 && b.config.Limit < total {
		total = b.config.Limit
	}
	return importer.NewProgressTracker(b.progress, core.CollectionEmbeddings, total, b.config.ReportInterval), nil
}
