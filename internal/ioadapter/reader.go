// Package ioadapter is the archive engine's Byte I/O Adapter (spec §4.1):
// a uniform ranged-read interface over either a buffered file handle or a
// memory-mapped region, plus a small positional-write backend.
package ioadapter

// Reader exposes a single ranged-read operation returning either a
// borrowed slice (mapped backend, zero-copy, valid only for the life
// of the Reader) or a copy into a reusable scratch buffer (buffered
// backend, valid only until the next Slice call on the same Reader).
// Callers that need to retain bytes past that point must copy them.
type Reader interface {
	Slice(offset int64, length int) ([]byte, error)
	Close() error
}
