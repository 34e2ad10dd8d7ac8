// Package importer implements the resumable batch-import pipeline.
//
// A Pipeline drives one import run: it loads each collection from a
// snapshot source, validates records, writes them to the target store
// in bounded transactional batches with conflict-aware semantics,
// resynchronizes identifier sequences, and produces a verification
// report. Collections are processed sequentially in dependency order
// (chunks, embeddings, conversations); batches are sequential on one
// store connection.
//
// Record-level problems (dimension rejects, duplicate skips, poison
// rows in resilient mode) are counters, never run failures. Only an
// unreachable target store moves a run to its failed state. Re-running
// the pipeline against an unchanged snapshot writes zero new rows.
package importer
