package vark

// Flags govern how an Archive is opened (spec §4.4's mode matrix).
// They mirror original_source/vark.h's VARK_PERSISTENT_FP, VARK_MMAP
// and VARK_WRITE bits.
type Flags uint32

const (
	// FlagPersistentHandle keeps one underlying file handle (or mapping)
	// alive across operations instead of opening and closing a fresh one
	// per call.
	FlagPersistentHandle Flags = 1 << iota
	// FlagMmap serves reads from a memory-mapped region instead of
	// buffered positional reads. Mutually exclusive with FlagWrite.
	FlagMmap
	// FlagWrite opens the archive for append. Mutually exclusive with
	// FlagMmap; disables every read/decompress operation.
	FlagWrite
)

// AppendFlags govern how a single Append call encodes its member body.
type AppendFlags uint32

const (
	// FlagSharded stores the member in the sharded layout (random-access
	// partial decompression) instead of the whole layout.
	FlagSharded AppendFlags = 1 << iota
)
