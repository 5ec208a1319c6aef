package vark

import "vark/internal/varkerr"

// These re-export the engine's sentinel errors so callers outside this
// module can classify failures with errors.Is(err, vark.ErrNotFound)
// and friends without reaching into an internal package.
var (
	ErrModeViolation = varkerr.ErrModeViolation
	ErrNotFound      = varkerr.ErrNotFound
	ErrUnsupported   = varkerr.ErrUnsupported
	ErrOutOfRange    = varkerr.ErrOutOfRange
	ErrCorrupt       = varkerr.ErrCorrupt
	ErrIoError       = varkerr.ErrIoError
)
