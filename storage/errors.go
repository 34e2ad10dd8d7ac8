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


package storage

import "errors"

var (
	// ErrDuplicateKey indicates a uniqueness-constraint collision. Under
	// conflict-skip semantics this is a counter, not an error condition.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrConnectionFailed indicates the target store is unreachable.
	// Fatal for the collection once the retry budget is exhausted.
	ErrConnectionFailed = errors.New("store connection failed")

	// ErrTransientFailure indicates a retryable write failure
	// (deadlock, serialization conflict, statement timeout).
	ErrTransientFailure = errors.New("transient store failure")

	// ErrSchemaMismatch indicates the target schema does not satisfy the
	// importer's contract (missing relation or wrong vector width).
	ErrSchemaMismatch = errors.New("target schema mismatch")

	// ErrStorageClosed indicates the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")
)
