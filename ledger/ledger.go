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


package ledger

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/poiesic/vecport/core"
)

const markerPrefix = "imp"

// Ledger records per-record imported markers in a local BadgerDB store.
type Ledger struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// Open opens the ledger at the specified path, creating the directory
// if it does not exist. Pass inMemory=true for an ephemeral ledger in
// tests.
func Open(filePath string, inMemory bool) (*Ledger, error) {
	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: slog.Default()}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Ledger{
		db:     db,
		logger: slog.Default().With("component", "ledger"),
	}, nil
}

// Close closes the underlying BadgerDB store.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// makeMarkerKey generates a marker key for a record.
// Format: prefix:collection:id, with the id in BigEndian order so
// prefix iteration walks identifiers in ascending order.
func makeMarkerKey(collection core.Collection, id int64) []byte {
	prefix := markerPrefix + ":" + string(collection) + ":"
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makeCollectionPrefix generates the key prefix shared by all markers
// of a collection.
func makeCollectionPrefix(collection core.Collection) []byte {
	return []byte(markerPrefix + ":" + string(collection) + ":")
}

// Mark records imported markers for the given identifiers, bound to the
// snapshot digest. Existing markers are overwritten; marking is
// idempotent per (collection, id, digest).
func (l *Ledger) Mark(collection core.Collection, ids []int64, digest string) error {
	if len(ids) == 0 {
		return nil
	}

	entry := Entry{
		Digest:     digest,
		ImportedAt: time.Now().UTC().Unix(),
	}
	value := MarshalEntry(entry)

	wb := l.db.NewWriteBatch()
	defer wb.Cancel()

	for _, id := range ids {
		if err := wb.Set(makeMarkerKey(collection, id), value); err != nil {
			return fmt.Errorf("failed to stage marker for %s/%d: %w", collection, id, err)
		}
	}

	if err := wb.Flush(); err != nil {
		return fmt.Errorf("failed to flush markers: %w", err)
	}

	l.logger.Debug("markers written", "collection", collection, "count", len(ids))
	return nil
}

// ImportedIDs returns the set of identifiers marked imported for the
// collection under the given snapshot digest. Markers bound to a
// different digest are skipped: they belong to another snapshot and say
// nothing about this one.
func (l *Ledger) ImportedIDs(collection core.Collection, digest string) (map[int64]struct{}, error) {
	ids := make(map[int64]struct{})
	prefix := makeCollectionPrefix(collection)

	err := l.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			key := item.Key()
			id := int64(binary.BigEndian.Uint64(key[len(prefix):]))

			err := item.Value(func(val []byte) error {
				entry, err := UnmarshalEntry(val)
				if err != nil {
					return err
				}
				if entry.Digest == digest {
					ids[id] = struct{}{}
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return ids, nil
}
