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
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/vecport/core"
	"github.com/poiesic/vecport/ledger"
	"github.com/poiesic/vecport/storage"
)

// State is the pipeline's position in its run.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateValidating
	StateWriting
	StateReconciling
	StateVerifying
	StateDone
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateValidating:
		return "validating"
	case StateWriting:
		return "writing"
	case StateReconciling:
		return "reconciling"
	case StateVerifying:
		return "verifying"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// RecordSource supplies the snapshot's record collections. Reads must
// be deterministic for a fixed snapshot; snapshot.Source satisfies this.
type RecordSource interface {
	Chunks() ([]*core.Chunk, error)
	Embeddings() ([]*core.Embedding, error)
	Conversations() ([]*core.Conversation, error)
	Digest(collection core.Collection) (string, error)
}

// Pipeline drives one import run: chunks, then embeddings, then
// conversations, each through load, validate, write and reconcile, with
// a final verification pass over the whole store.
type Pipeline struct {
	store    storage.Store
	source   RecordSource
	ledger   *ledger.Ledger
	config   *Config
	progress io.Writer
	logger   *slog.Logger
	state    State
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLedger attaches a resume ledger. Markers strengthen resume from
// the weak max-identifier checkpoint to gap-safe per-record tracking.
func WithLedger(l *ledger.Ledger) Option {
	return func(p *Pipeline) {
		p.ledger = l
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
	}
}

// NewPipeline creates an import pipeline.
// progress: where to write progress output (typically os.Stderr)
func NewPipeline(store storage.Store, source RecordSource, config *Config, progress io.Writer, opts ...Option) (*Pipeline, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		store:    store,
		source:   source,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "importer"),
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// State returns the pipeline's current state.
func (p *Pipeline) State() State {
	return p.state
}

func (p *Pipeline) setState(state State, collection core.Collection) {
	p.state = state
	p.logger.Debug("pipeline state", "state", state, "collection", collection)
}

// loadedSnapshot holds all collections read up front, so a missing or
// malformed artifact aborts the run before any writes.
type loadedSnapshot struct {
	chunks        []*core.Chunk
	embeddings    []*core.Embedding
	conversations []*core.Conversation
	digests       map[core.Collection]string
}

// Run executes the import and returns the run report. The report lists
// every collection's counts even when the run fails partway, so a
// partial run is auditable from its summary alone.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := newReport(p.config.DryRun)
	defer func() {
		report.FinishedAt = time.Now().UTC()
	}()

	loaded, err := p.load(report)
	if err != nil {
		p.setState(StateFailed, "")
		return report, err
	}

	if !p.config.DryRun {
		if err := p.verifySchema(ctx); err != nil {
			p.setState(StateFailed, "")
			return report, err
		}
	}

	steps := []struct {
		collection core.Collection
		run        func(ctx context.Context, section *CollectionReport) error
	}{
		{core.CollectionChunks, func(ctx context.Context, section *CollectionReport) error {
			return p.importChunks(ctx, loaded.chunks, section)
		}},
		{core.CollectionEmbeddings, func(ctx context.Context, section *CollectionReport) error {
			return p.importEmbeddings(ctx, loaded.embeddings, section)
		}},
		{core.CollectionConversations, func(ctx context.Context, section *CollectionReport) error {
			return p.importConversations(ctx, loaded.conversations, section)
		}},
	}

	for _, step := range steps {
		section := report.section(step.collection)
		section.Digest = loaded.digests[step.collection]

		start := time.Now()
		err := step.run(ctx, section)
		section.ElapsedSeconds = time.Since(start).Seconds()

		if err != nil {
			p.setState(StateFailed, step.collection)
			section.Error = err.Error()
			report.Failed = step.collection
			return report, &RunError{Collection: step.collection, Cause: err}
		}
	}

	if err := p.verify(ctx, loaded, report); err != nil {
		p.setState(StateFailed, "")
		return report, err
	}

	report.computeCoverage()
	p.setState(StateDone, "")
	return report, nil
}

// load reads all collections and their digests. Source failures are
// fatal before any writes.
func (p *Pipeline) load(report *Report) (*loadedSnapshot, error) {
	loaded := &loadedSnapshot{digests: make(map[core.Collection]string)}

	p.setState(StateLoading, core.CollectionChunks)
	chunks, err := p.source.Chunks()
	if err != nil {
		return nil, err
	}
	loaded.chunks = chunks
	report.section(core.CollectionChunks).SourceCount = len(chunks)

	p.setState(StateLoading, core.CollectionEmbeddings)
	embeddings, err := p.source.Embeddings()
	if err != nil {
		return nil, err
	}
	loaded.embeddings = embeddings
	report.section(core.CollectionEmbeddings).SourceCount = len(embeddings)

	p.setState(StateLoading, core.CollectionConversations)
	conversations, err := p.source.Conversations()
	if err != nil {
		return nil, err
	}
	loaded.conversations = conversations
	report.section(core.CollectionConversations).SourceCount = len(conversations)

	for _, collection := range core.Collections() {
		digest, err := p.source.Digest(collection)
		if err != nil {
			return nil, err
		}
		loaded.digests[collection] = digest
	}

	return loaded, nil
}

func (p *Pipeline) verifySchema(ctx context.Context) error {
	return RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
		defer cancel()
		return p.store.VerifySchema(callCtx, p.config.VectorDim)
	}, p.config.MaxRetries, p.config.RetryDelay, isTransient)
}

func (p *Pipeline) resolver() *checkpointResolver {
	return &checkpointResolver{
		store:       p.store,
		maxRetries:  p.config.MaxRetries,
		retryDelay:  p.config.RetryDelay,
		callTimeout: p.config.CallTimeout,
		logger:      p.logger,
	}
}

func (p *Pipeline) importChunks(ctx context.Context, records []*core.Chunk, section *CollectionReport) error {
	p.setState(StateValidating, core.CollectionChunks)

	valid := make([]*core.Chunk, 0, len(records))
	for _, record := range records {
		if err := core.ValidateChunk(record); err != nil {
			p.logger.Warn("chunk rejected", "error", err)
			section.Counts.Rejected++
			continue
		}
		valid = append(valid, record)
	}

	if p.config.DryRun {
		p.logger.Info("dry run, skipping chunk writes", "valid", len(valid))
		return nil
	}

	p.setState(StateWriting, core.CollectionChunks)
	writer := &batchWriter[*core.Chunk]{
		collection:  core.CollectionChunks,
		batchSize:   p.config.batchSize(core.CollectionChunks),
		strict:      p.config.Strict,
		maxRetries:  p.config.MaxRetries,
		retryDelay:  p.config.RetryDelay,
		callTimeout: p.config.CallTimeout,
		insertBatch: p.store.InsertChunks,
		insertOne:   p.store.InsertChunk,
		tracker:     p.newTracker(core.CollectionChunks, len(valid)),
		logger:      p.logger,
	}

	counts, err := runWriter(ctx, writer, valid)
	section.Counts.add(counts)
	if err != nil {
		return err
	}

	return p.reconcile(ctx, core.CollectionChunks, section)
}

func (p *Pipeline) importEmbeddings(ctx context.Context, records []*core.Embedding, section *CollectionReport) error {
	p.setState(StateValidating, core.CollectionEmbeddings)

	valid := make([]*core.Embedding, 0, len(records))
	for _, record := range records {
		if err := core.ValidateEmbedding(record, p.config.VectorDim); err != nil {
			p.logger.Warn("embedding rejected", "error", err)
			section.Counts.Rejected++
			continue
		}
		valid = append(valid, record)
	}

	if p.config.DryRun {
		p.logger.Info("dry run, skipping embedding writes", "valid", len(valid))
		return nil
	}

	digest := section.Digest
	remaining := valid
	if p.config.Resume {
		checkpoint, present, err := p.resolver().resolve(ctx, core.CollectionEmbeddings)
		if err != nil {
			return err
		}
		if !present {
			checkpoint = 0
		}

		var imported map[int64]struct{}
		if p.ledger != nil {
			imported, err = p.ledger.ImportedIDs(core.CollectionEmbeddings, digest)
			if err != nil {
				return fmt.Errorf("reading resume ledger: %w", err)
			}
		}

		remaining = remainingEmbeddings(valid, checkpoint, imported)
		section.Counts.Skipped += len(valid) - len(remaining)
		p.logger.Info("resume computed remaining work",
			"collection", core.CollectionEmbeddings,
			"checkpoint", checkpoint,
			"source", len(valid),
			"remaining", len(remaining))
	}

	p.setState(StateWriting, core.CollectionEmbeddings)
	writer := &batchWriter[*core.Embedding]{
		collection:  core.CollectionEmbeddings,
		batchSize:   p.config.batchSize(core.CollectionEmbeddings),
		strict:      p.config.Strict,
		maxRetries:  p.config.MaxRetries,
		retryDelay:  p.config.RetryDelay,
		callTimeout: p.config.CallTimeout,
		insertBatch: func(ctx context.Context, batch []*core.Embedding) (int, int, error) {
			return p.store.InsertEmbeddings(ctx, batch, p.config.ConflictMode)
		},
		insertOne: func(ctx context.Context, record *core.Embedding) (bool, error) {
			return p.store.InsertEmbedding(ctx, record, p.config.ConflictMode)
		},
		tracker: p.newTracker(core.CollectionEmbeddings, len(remaining)),
		logger:  p.logger,
	}
	if p.ledger != nil {
		writer.onCommitted = func(batch []*core.Embedding) {
			ids := make([]int64, len(batch))
			for i, record := range batch {
				ids[i] = record.ID
			}
			// The ledger is advisory: a failed marker write only weakens
			// a future resume, it never fails the run.
			if err := p.ledger.Mark(core.CollectionEmbeddings, ids, digest); err != nil {
				p.logger.Warn("failed to write resume markers", "error", err)
			}
		}
	}

	counts, err := runWriter(ctx, writer, remaining)
	section.Counts.add(counts)
	if err != nil {
		return err
	}

	return p.reconcile(ctx, core.CollectionEmbeddings, section)
}

func (p *Pipeline) importConversations(ctx context.Context, records []*core.Conversation, section *CollectionReport) error {
	p.setState(StateValidating, core.CollectionConversations)

	valid := make([]*core.Conversation, 0, len(records))
	for _, record := range records {
		if err := core.ValidateConversation(record); err != nil {
			p.logger.Warn("conversation rejected", "error", err)
			section.Counts.Rejected++
			continue
		}
		valid = append(valid, record)
	}

	if p.config.DryRun {
		p.logger.Info("dry run, skipping conversation writes", "valid", len(valid))
		return nil
	}

	p.setState(StateWriting, core.CollectionConversations)
	writer := &batchWriter[*core.Conversation]{
		collection:  core.CollectionConversations,
		batchSize:   p.config.batchSize(core.CollectionConversations),
		strict:      p.config.Strict,
		maxRetries:  p.config.MaxRetries,
		retryDelay:  p.config.RetryDelay,
		callTimeout: p.config.CallTimeout,
		insertBatch: p.store.InsertConversations,
		insertOne:   p.store.InsertConversation,
		tracker:     p.newTracker(core.CollectionConversations, len(valid)),
		logger:      p.logger,
	}

	counts, err := runWriter(ctx, writer, valid)
	section.Counts.add(counts)
	if err != nil {
		return err
	}

	return p.reconcile(ctx, core.CollectionConversations, section)
}

// runWriter runs a collection's batch writer with progress tracking.
func runWriter[T any](ctx context.Context, writer *batchWriter[T], records []T) (Counts, error) {
	if writer.tracker != nil {
		writer.tracker.Start()
	}

	counts, err := writer.writeAll(ctx, records)

	if writer.tracker != nil && err == nil {
		writer.tracker.Finish()
	}
	return counts, err
}

// reconcile resynchronizes a collection's identifier sequence after its
// writes complete.
func (p *Pipeline) reconcile(ctx context.Context, collection core.Collection, section *CollectionReport) error {
	p.setState(StateReconciling, collection)

	var value int64
	err := RetryWithBackoff(ctx, func() error {
		callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
		defer cancel()

		var err error
		value, err = p.store.ReconcileSequence(callCtx, collection)
		return err
	}, p.config.MaxRetries, p.config.RetryDelay, isTransient)
	if err != nil {
		return fmt.Errorf("sequence reconcile: %w", err)
	}

	section.SequenceValue = value
	return nil
}

// verify re-counts store rows per collection against source counts.
// Discrepancies are reported, never rolled back.
func (p *Pipeline) verify(ctx context.Context, loaded *loadedSnapshot, report *Report) error {
	p.setState(StateVerifying, "")

	if p.config.DryRun {
		return nil
	}

	for _, collection := range core.Collections() {
		section := report.section(collection)

		var count int64
		err := RetryWithBackoff(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, p.config.CallTimeout)
			defer cancel()

			var err error
			count, err = p.store.Count(callCtx, collection)
			return err
		}, p.config.MaxRetries, p.config.RetryDelay, isTransient)
		if err != nil {
			return fmt.Errorf("verifying %s: %w", collection, err)
		}

		section.StoreCount = count
		if int(count) < section.SourceCount-section.Counts.Rejected-section.Counts.Failed {
			p.logger.Warn("store row count below source count",
				"collection", collection,
				"source", section.SourceCount,
				"store", count)
		}
	}

	return nil
}

func (p *Pipeline) newTracker(collection core.Collection, total int) *ProgressTracker {
	if p.progress == nil {
		return nil
	}
	return NewProgressTracker(p.progress, collection, total, p.config.ReportInterval)
}
