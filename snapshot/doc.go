// Package snapshot reads export snapshot artifacts into memory.
//
// A snapshot is a directory containing one JSON array per collection
// (chunks.json, embeddings.json, conversations.json). Reads are pure:
// a fixed snapshot yields byte-identical results on every read, which
// is what makes import re-runs deterministic.
package snapshot
