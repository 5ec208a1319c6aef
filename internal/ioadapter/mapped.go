package ioadapter

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Mapped reads through a read-only mapping covering the whole file.
// Slice returns a borrow directly into the mapping without copying;
// the borrow's lifetime is bounded by the Mapped instance's lifetime.
//
// Adapted from luhtfiimanal-go-cache-archive's shard mmap handling
// (cache.go, flush_close.go), which maps a fixed-record cache file
// read/write; here the mapping is read-only and sized to the whole
// archive rather than one shard file.
type Mapped struct {
	data []byte
}

// NewMapped maps the entirety of f for reading.
func NewMapped(f *os.File) (*Mapped, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat for mmap: %w", err)
	}
	size := info.Size()
	if size == 0 {
		return &Mapped{data: nil}, nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return &Mapped{data: data}, nil
}

func (m *Mapped) Slice(offset int64, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	end := offset + int64(length)
	if offset < 0 || end > int64(len(m.data)) {
		return nil, fmt.Errorf("mmap slice [%d:%d] out of bounds (mapping size %d)", offset, end, len(m.data))
	}
	return m.data[offset:end], nil
}

func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}
