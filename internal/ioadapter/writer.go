package ioadapter

import (
	"fmt"
	"io"
	"os"
)

// Writer is the Byte I/O Adapter's write backend (spec §4.1): unbuffered
// positional writes plus append-at-end-of-file. Only overwrite-in-place
// and append are ever used by the container codec; truncation is
// implicit in the append protocol, since the new trailer always extends
// past the old one.
type Writer struct {
	f *os.File
}

func NewWriter(f *os.File) *Writer {
	return &Writer{f: f}
}

// WriteAt overwrites the region starting at offset with data.
func (w *Writer) WriteAt(offset int64, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := w.f.WriteAt(data, offset); err != nil {
		return fmt.Errorf("write at %d (%d bytes): %w", offset, len(data), err)
	}
	return nil
}

// Append writes data at the current end of the file and returns the
// offset it was written at.
func (w *Writer) Append(data []byte) (int64, error) {
	offset, err := w.f.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("seek to end: %w", err)
	}
	if len(data) > 0 {
		if _, err := w.f.Write(data); err != nil {
			return 0, fmt.Errorf("append %d bytes at %d: %w", len(data), offset, err)
		}
	}
	return offset, nil
}

func (w *Writer) Close() error {
	return w.f.Close()
}
