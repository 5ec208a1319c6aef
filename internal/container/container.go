// Package container implements the Container Codec (spec §4.2): the
// fixed header, the trailer (entry table + VSHD extension), the
// in-memory catalog, and the append protocol's trailer-rewrite steps.
package container

import (
	"fmt"

	"vark/internal/ioadapter"
)

// CreateEmpty writes a minimal archive: the fixed header pointing at
// an empty trailer (entry_count = 0), with no extension block yet
// (spec §4.2 "Open for create" — the block only appears once an
// append has happened).
func CreateEmpty(w *ioadapter.Writer) error {
	header := EncodeHeader(HeaderSize)
	if _, err := w.Append(header); err != nil {
		return fmt.Errorf("container: write header: %w", err)
	}
	var emptyCount [8]byte
	if _, err := w.Append(emptyCount[:]); err != nil {
		return fmt.Errorf("container: write empty entry count: %w", err)
	}
	return nil
}

// ReadTrailerOffset reads and validates the fixed header, returning
// the trailer's absolute file offset.
func ReadTrailerOffset(r ioadapter.Reader) (uint64, error) {
	buf, err := r.Slice(0, HeaderSize)
	if err != nil {
		return 0, fmt.Errorf("container: read header: %w", err)
	}
	offset, err := DecodeHeader(buf)
	if err != nil {
		return 0, err
	}
	return offset, nil
}

// LoadCatalog reads the trailer pointed at by the header and returns
// the populated catalog.
func LoadCatalog(r ioadapter.Reader) (*Catalog, error) {
	trailerOffset, err := ReadTrailerOffset(r)
	if err != nil {
		return nil, err
	}
	entries, err := DecodeTrailer(r, int64(trailerOffset))
	if err != nil {
		return nil, fmt.Errorf("container: decode trailer at %d: %w", trailerOffset, err)
	}
	cat := NewCatalog()
	cat.reset(entries)
	return cat, nil
}

// CommitAppend performs the append protocol's trailer-rewrite steps
// (spec §4.2 steps 4-6): add the new entry to the in-memory catalog,
// write a fresh trailer at newTrailerOffset (immediately following the
// member body just written, which itself overwrote the old trailer in
// place), then overwrite the header's trailer-offset field last. That
// last write is the commit point. Because the body has already
// overwritten the previous trailer, a failure before the header rewrite
// leaves the header pointing at the start of the new body rather than
// at a readable trailer.
func CommitAppend(w *ioadapter.Writer, cat *Catalog, newEntry Entry, newTrailerOffset uint64) error {
	if err := cat.Add(newEntry); err != nil {
		return err
	}

	trailerBytes := EncodeTrailer(cat.Entries)
	if err := w.WriteAt(int64(newTrailerOffset), trailerBytes); err != nil {
		return fmt.Errorf("container: write trailer: %w", err)
	}

	if err := w.WriteAt(TrailerOffsetFieldOffset, EncodeTrailerOffset(newTrailerOffset)); err != nil {
		return fmt.Errorf("container: commit trailer offset: %w", err)
	}
	return nil
}
