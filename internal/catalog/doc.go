// Package catalog implements the durable media catalog on SQLite: the
// media_items table keyed by original URL and the watched directories table.
//
// The store is opened once per process and shared by all callers. Writes are
// serialized; reads run concurrently. Upserts are single-statement
// insert-or-replace operations, so concurrent writers on the same key resolve
// to last-writer-wins and the catalog never holds two rows for one original
// URL.
//
// Schema migrations run on open, are idempotent, and only ever add columns
// with defaults; data written by older versions stays intact. Rows whose type
// value is not recognized (written by a newer version) are skipped on read
// instead of failing the query.
package catalog
