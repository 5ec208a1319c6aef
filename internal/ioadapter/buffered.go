package ioadapter

import (
	"fmt"
	"io"
	"os"
)

// Buffered reads through a seekable file handle, reusing one
// instance-owned scratch buffer across calls to avoid repeated
// allocation (spec §4.1, §5 "shared scratch buffers").
type Buffered struct {
	f       *os.File
	owned   bool // true if Close should close f (a per-op handle, not a caller-kept one)
	scratch []byte
}

// NewBuffered wraps f. If owned is true, Close closes f; otherwise the
// caller retains ownership and Close is a no-op on f (matching the
// PERSISTENT_HANDLE vs per-operation handle distinction in spec §4.4).
func NewBuffered(f *os.File, owned bool) *Buffered {
	return &Buffered{f: f, owned: owned}
}

func (b *Buffered) Slice(offset int64, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	if cap(b.scratch) < length {
		b.scratch = make([]byte, length)
	}
	buf := b.scratch[:length]
	n, err := b.f.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && n == length) {
		return nil, fmt.Errorf("buffered read at %d (%d bytes): %w", offset, length, err)
	}
	return buf, nil
}

func (b *Buffered) Close() error {
	if !b.owned {
		return nil
	}
	return b.f.Close()
}
