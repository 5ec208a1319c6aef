// Package varkerr defines the archive engine's error taxonomy.
//
// Every operation failure wraps exactly one of the sentinel errors
// below so callers can classify it with errors.Is, while the wrapped
// message carries operation-specific context.
package varkerr

import (
	"errors"
	"fmt"
)

var (
	// ErrModeViolation is returned when an operation is attempted against
	// an engine instance whose open flags forbid it (read op in write
	// mode, write op in read mode, WRITE and MMAP requested together).
	ErrModeViolation = errors.New("vark: mode violation")

	// ErrNotFound is returned when a lookup path is absent from the catalog.
	ErrNotFound = errors.New("vark: member not found")

	// ErrUnsupported is returned when a partial-decode is requested on a
	// member stored in the whole (non-sharded) layout.
	ErrUnsupported = errors.New("vark: operation unsupported for member layout")

	// ErrOutOfRange is returned when a partial-decode range extends past
	// the member's uncompressed size.
	ErrOutOfRange = errors.New("vark: range out of bounds")

	// ErrCorrupt is returned for bad magic, truncated bodies, decoder
	// output length mismatches, or internally inconsistent offsets.
	ErrCorrupt = errors.New("vark: corrupt archive data")

	// ErrIoError is returned when an underlying read, write, seek, or
	// mmap operation fails.
	ErrIoError = errors.New("vark: i/o error")
)

// Wrap attaches sentinel to err's chain with operation-specific context.
// If err already wraps one of the sentinels above, it is returned
// unchanged so call sites deeper in the stack don't double-wrap.
func Wrap(sentinel, err error, msg string) error {
	if err == nil {
		return nil
	}
	for _, s := range []error{ErrModeViolation, ErrNotFound, ErrUnsupported, ErrOutOfRange, ErrCorrupt, ErrIoError} {
		if errors.Is(err, s) {
			return err
		}
	}
	return fmt.Errorf("%s: %w: %v", msg, sentinel, err)
}

// New builds a fresh error of the given kind with no underlying cause.
func New(sentinel error, msg string) error {
	return fmt.Errorf("%s: %w", msg, sentinel)
}
