// Package postgres implements storage.Store against PostgreSQL with
// pgvector columns, using the bun query builder.
//
// All batch inserts run inside a single transaction with collection
// specific ON CONFLICT clauses, so a batch either fully commits or
// fully rolls back. Driver errors are translated into the sentinel
// taxonomy in the storage package before they reach the pipeline.
package postgres
