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


// Package backfill generates embeddings for chunks that have none.
//
// A snapshot import moves pre-computed vectors; chunks whose vectors
// were never computed (or were rejected on import) end up without an
// embedding row. The Backfiller finds those chunks, generates vectors
// through an ai.Embedder, and writes them back in the store's conflict
// mode of choice.
//
// Generation is the only concurrent stage: embedder calls run on an
// ants worker pool sized to the deployment. Store writes stay
// sequential on the single connection, same as the import pipeline.
package backfill
