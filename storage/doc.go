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


// Package storage defines the target-store abstraction for vecport.
//
// The interfaces here decouple the import pipeline from the concrete
// backend. The production implementation lives in storage/postgres
// (PostgreSQL with pgvector columns, via bun); tests use in-memory
// fakes that implement the same interfaces.
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the storage.Store interface to
// prevent accidental coupling to backend specifics:
//
//	store, err := postgres.Open(ctx, dsn)  // returns storage.Store
//
// Internal constructors may return concrete types since they are only
// used within the implementation package.
//
// # Error Classification
//
// Backends translate their driver errors into the sentinel taxonomy in
// errors.go (ErrDuplicateKey, ErrConnectionFailed, ErrTransientFailure)
// so the pipeline's retry and conflict handling stays backend-agnostic.
//
// # Write Semantics
//
// All insert operations are conflict-aware and write-once: rows already
// present are never mutated except for embeddings in overwrite mode.
// Batch inserts are transactional; no partial batch is ever visible to
// readers.
package storage
