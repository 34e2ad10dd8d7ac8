// Package ledger provides an optional gap-safe resume ledger for
// import runs.
//
// The max-identifier checkpoint cannot detect gaps left by prior
// partially-failed runs mid-range. When a ledger is enabled, the
// pipeline records a per-record imported marker keyed by collection and
// identifier, bound to the snapshot artifact's digest. On resume,
// records already marked for the same digest are filtered out even when
// they sit below the checkpoint gap. Markers written for a different
// snapshot are ignored.
//
// Markers live in a local BadgerDB keyed store, MUS-encoded.
package ledger
