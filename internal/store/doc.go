// Package store holds the note and credential repositories.
//
// Each repository owns one collection persisted as a single JSON array under a
// fixed key of a kv.Store. Every operation re-reads the whole collection,
// transforms it in memory and, for mutations, writes the whole collection back.
// Nothing is cached between calls and nothing serializes concurrent callers:
// two mutations whose read and write halves interleave can lose an update.
package store
