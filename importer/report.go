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
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/poiesic/vecport/core"
)

// Counts summarizes the outcome of writes for one collection.
type Counts struct {
	// Written rows are durably present because of this run.
	Written int `json:"written"`
	// Skipped rows already existed (duplicate-skip is not an error).
	Skipped int `json:"skipped"`
	// Rejected records failed validation (dimension mismatch) and were
	// never written.
	Rejected int `json:"rejected"`
	// Failed records exhausted the retry budget in resilient mode.
	Failed int `json:"failed"`
}

func (c *Counts) add(other Counts) {
	c.Written += other.Written
	c.Skipped += other.Skipped
	c.Rejected += other.Rejected
	c.Failed += other.Failed
}

// CollectionReport is the per-collection section of the run report.
// Every collection appears in the final report, including zero-written
// ones, so a partial run stays auditable from its summary alone.
type CollectionReport struct {
	Collection     core.Collection `json:"collection"`
	Counts         Counts          `json:"counts"`
	SourceCount    int             `json:"source_count"`
	StoreCount     int64           `json:"store_count"`
	ElapsedSeconds float64         `json:"elapsed_seconds"`
	Digest         string          `json:"digest,omitempty"`
	SequenceValue  int64           `json:"sequence_value,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Report is the structured summary of one import run.
type Report struct {
	RunID       string             `json:"run_id"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
	DryRun      bool               `json:"dry_run"`
	Collections []CollectionReport `json:"collections"`
	// Coverage is embeddings written over chunks written for this run,
	// or the store-count ratio when the run wrote nothing.
	Coverage float64 `json:"coverage"`
	// Failed names the collection that moved the run to its failed
	// state, empty on success.
	Failed core.Collection `json:"failed,omitempty"`
}

// newReport initializes a report listing every collection with zero
// counts, in dependency order.
func newReport(dryRun bool) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		DryRun:    dryRun,
	}
	for _, collection := range core.Collections() {
		report.Collections = append(report.Collections, CollectionReport{Collection: collection})
	}
	return report
}

// section returns the report section for a collection.
func (r *Report) section(collection core.Collection) *CollectionReport {
	for i := range r.Collections {
		if r.Collections[i].Collection == collection {
			return &r.Collections[i]
		}
	}
	return nil
}

// computeCoverage derives the coverage ratio from this run's written
// counts, falling back to store counts when nothing was written.
func (r *Report) computeCoverage() {
	chunks := r.section(core.CollectionChunks)
	embeddings := r.section(core.CollectionEmbeddings)

	switch {
	case chunks.Counts.Written > 0:
		r.Coverage = float64(embeddings.Counts.Written) / float64(chunks.Counts.Written)
	case chunks.StoreCount > 0:
		r.Coverage = float64(embeddings.StoreCount) / float64(chunks.StoreCount)
	default:
		r.Coverage = 0
	}
}

// WriteText writes a human-readable summary table.
func (r *Report) WriteText(w io.Writer) {
	fmt.Fprintf(w, "run %s (started %s)\n", r.RunID, r.StartedAt.Format(time.RFC3339))
	if r.DryRun {
		fmt.Fprintln(w, "dry run: no rows were written")
	}

	fmt.Fprintf(w, "%-15s %8s %8s %8s %8s %8s %8s %10s\n",
		"collection", "source", "store", "written", "skipped", "rejected", "failed", "elapsed")
	for _, section := range r.Collections {
		fmt.Fprintf(w, "%-15s %8d %8d %8d %8d %8d %8d %9.1fs\n",
			section.Collection,
			section.SourceCount,
			section.StoreCount,
			section.Counts.Written,
			section.Counts.Skipped,
			section.Counts.Rejected,
			section.Counts.Failed,
			section.ElapsedSeconds)
		if section.Error != "" {
			fmt.Fprintf(w, "%-15s   error: %s\n", "", section.Error)
		}
	}

	fmt.Fprintf(w, "coverage: %.1f%%\n", r.Coverage*100)
	if r.Failed != "" {
		fmt.Fprintf(w, "FAILED on collection %s\n", r.Failed)
	}
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
