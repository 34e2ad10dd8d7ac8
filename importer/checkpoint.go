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
	"log/slog"
	"time"

	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/storage"
)

// checkpointResolver queries the target store for a collection's
// high-water mark. The checkpoint is recomputed from the store on every
// run and never persisted, which keeps the importer stateless across
// restarts.
type checkpointResolver struct {
	store       storage.StoreManager
	maxRetries  int
	retryDelay  time.Duration
	callTimeout time.Duration
	logger      *slog.Logger
}

// resolve returns the maximum identifier present for the collection,
// with false when the relation is empty.
func (r *checkpointResolver) resolve(ctx context.Context, collection core.Collection) (int64, bool, error) {
	var checkpoint int64
	var present bool

	err := RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, r.callTimeout)
		defer cancel()

		var err error
		checkpoint, present, err = r.store.MaxID(callCtx, collection)
		return err
	}, r.maxRetries, r.retryDelay, isTransient)
	if err != nil {
		return 0, false, err
	}

	r.logger.Debug("checkpoint resolved", "collection", collection, "checkpoint", checkpoint, "present", present)
	return checkpoint, present, nil
}

// remainingEmbeddings computes the resumable subset of the source.
// Without a ledger (imported == nil) the checkpoint is authoritative:
// everything at or below it is dropped. This is the weak form of
// resume; it cannot see gaps left mid-range by prior partial failures.
// With a ledger, the per-record markers are authoritative instead:
// marked identifiers are dropped wherever they sit, and unmarked
// sub-checkpoint records are kept so gaps get retried. Conflict-skip
// makes those retries harmless when the row does exist.
func remainingEmbeddings(records []*core.Embedding, checkpoint int64, imported map[int64]struct{}) []*core.Embedding {
	remaining := make([]*core.Embedding, 0, len(records))
	for _, record := range records {
		if _, marked := imported[record.ID]; marked {
			continue
		}
		if imported == nil && record.ID <= checkpoint {
			continue
		}
		remaining = append(remaining, record)
	}
	return remaining
}
