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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/storage"
)

// batchWriter persists one collection's records in bounded transactional
// batches. Each batch either fully commits or fully rolls back. In
// strict mode a failed batch aborts the collection; in resilient mode
// (the default) the rolled-back batch is salvaged record by record so
// one poison row never blocks the rest of the collection.
//
// The two function fields bind a collection's store operations without
// repeating the write loop per record type.
type batchWriter[T any] struct {
	collection  core.Collection
	batchSize   int
	strict      bool
	maxRetries  int
	retryDelay  time.Duration
	callTimeout time.Duration

	// insertBatch writes records in one transaction with the
	// collection's conflict policy, returning written and skipped counts.
	insertBatch func(ctx context.Context, records []T) (written, skipped int, err error)

	// insertOne writes a single record in its own transaction.
	// Reports whether a row was written (false means duplicate-skip).
	insertOne func(ctx context.Context, record T) (bool, error)

	// onCommitted, if set, observes each durably committed group of
	// records. Used for resume-ledger markers.
	onCommitted func(records []T)

	tracker *ProgressTracker
	logger  *slog.Logger
}

// writeAll writes records in batches of batchSize. Cancellation is
// checked between batches, never mid-batch, so a cancelled run leaves
// only whole committed batches behind.
func (w *batchWriter[T]) writeAll(ctx context.Context, records []T) (Counts, error) {
	var counts Counts

	for start := 0; start < len(records); start += w.batchSize {
		select {
		case <-ctx.Done():
			return counts, ctx.Err()
		default:
		}

		end := start + w.batchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		batchCounts, err := w.writeBatch(ctx, batch)
		counts.add(batchCounts)
		if err != nil {
			return counts, err
		}

		if w.tracker != nil {
			w.tracker.Increment(len(batch))
		}
	}

	return counts, nil
}

// writeBatch writes one batch, retrying transient failures and
// connection loss with backoff. A batch that still fails after the
// retry budget is either fatal (strict mode, connection loss) or
// salvaged record by record (resilient mode).
func (w *batchWriter[T]) writeBatch(ctx context.Context, batch []T) (Counts, error) {
	var written, skipped int
	err := RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
		defer cancel()

		var err error
		written, skipped, err = w.insertBatch(callCtx, batch)
		return err
	}, w.maxRetries, w.retryDelay, isTransient)

	if err == nil {
		if w.onCommitted != nil {
			w.onCommitted(batch)
		}
		return Counts{Written: written, Skipped: skipped}, nil
	}

	if ctx.Err() != nil {
		return Counts{}, ctx.Err()
	}
	if errors.Is(err, storage.ErrConnectionFailed) {
		return Counts{}, fmt.Errorf("batch write: %w", err)
	}
	if w.strict {
		return Counts{}, fmt.Errorf("batch write (strict): %w", err)
	}

	// Resilient mode: the batch transaction has rolled back; retry each
	// record in its own transaction so the poison row surfaces alone.
	w.logger.Warn("batch failed, salvaging records individually",
		"collection", w.collection, "batchSize", len(batch), "error", err)
	return w.salvage(ctx, batch)
}

// salvage writes each record of a failed batch individually. Record
// failures become counters; only connection loss that outlasts the
// retries stays fatal.
func (w *batchWriter[T]) salvage(ctx context.Context, batch []T) (Counts, error) {
	var counts Counts

	for _, record := range batch {
		err := RetryWithBackoff(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, w.callTimeout)
			defer cancel()

			wrote, err := w.insertOne(callCtx, record)
			if err != nil {
				return err
			}
			if wrote {
				counts.Written++
			} else {
				counts.Skipped++
			}
			return nil
		}, w.maxRetries, w.retryDelay, isTransient)

		if err == nil {
			if w.onCommitted != nil {
				w.onCommitted([]T{record})
			}
			continue
		}

		if ctx.Err() != nil {
			return counts, ctx.Err()
		}
		if errors.Is(err, storage.ErrConnectionFailed) {
			return counts, fmt.Errorf("record write: %w", err)
		}

		w.logger.Warn("record failed after retries", "collection", w.collection, "error", err)
		counts.Failed++
	}

	return counts, nil
}
