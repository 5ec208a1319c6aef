// Package vark is the Archive Engine facade (spec §4.4): it composes
// the container, member, and I/O adapter layers behind one type, owns
// the in-memory catalog, and enforces the WRITE/MMAP/PERSISTENT_HANDLE
// mode matrix.
//
// Grounded on SimplyYourAverageDev-agcp's pkg/core/compress.go and
// decompress.go for the overall create/open/operate/close control flow,
// and on original_source/vark.h and vark.cpp for the exact flag
// semantics and append ordering.
package vark

import (
	"hash/fnv"
	"os"

	"vark/internal/container"
	"vark/internal/ioadapter"
	"vark/internal/member"
	"vark/internal/varkerr"
)

// Archive is an open handle on a single archive file.
type Archive struct {
	path    string
	flags   Flags
	catalog *container.Catalog

	// Set only when FlagPersistentHandle was requested; otherwise every
	// operation opens and closes its own short-lived handle.
	file   *os.File
	mapped *ioadapter.Mapped
}

func checkModeMatrix(flags Flags) error {
	if flags&FlagWrite != 0 && flags&FlagMmap != 0 {
		return varkerr.New(varkerr.ErrModeViolation, "WRITE and MMAP flags are mutually exclusive")
	}
	return nil
}

// Create initializes a new, empty archive at path, truncating any
// existing file there.
func Create(path string, flags Flags) (*Archive, error) {
	if err := checkModeMatrix(flags); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, varkerr.Wrap(varkerr.ErrIoError, err, "create: open archive")
	}

	w := ioadapter.NewWriter(f)
	if err := container.CreateEmpty(w); err != nil {
		f.Close()
		return nil, varkerr.Wrap(varkerr.ErrIoError, err, "create: write initial header")
	}

	a := &Archive{path: path, flags: flags, catalog: container.NewCatalog()}
	if flags&FlagPersistentHandle != 0 {
		a.file = f
	} else if err := f.Close(); err != nil {
		return nil, varkerr.Wrap(varkerr.ErrIoError, err, "create: close archive")
	}
	return a, nil
}

// Load opens an existing archive and reads its full catalog into memory.
func Load(path string, flags Flags) (*Archive, error) {
	if err := checkModeMatrix(flags); err != nil {
		return nil, err
	}

	mode := os.O_RDONLY
	if flags&FlagWrite != 0 {
		mode = os.O_RDWR
	}
	f, err := os.OpenFile(path, mode, 0o644)
	if err != nil {
		return nil, varkerr.Wrap(varkerr.ErrIoError, err, "load: open archive")
	}

	var reader ioadapter.Reader
	var mapped *ioadapter.Mapped
	if flags&FlagMmap != 0 {
		mapped, err = ioadapter.NewMapped(f)
		if err != nil {
			f.Close()
			return nil, varkerr.Wrap(varkerr.ErrIoError, err, "load: map archive")
		}
		reader = mapped
	} else {
		reader = ioadapter.NewBuffered(f, false)
	}

	catalog, err := container.LoadCatalog(reader)
	if err != nil {
		if mapped != nil {
			mapped.Close()
		}
		f.Close()
		return nil, varkerr.Wrap(varkerr.ErrCorrupt, err, "load: read catalog")
	}

	a := &Archive{path: path, flags: flags, catalog: catalog}
	if flags&FlagPersistentHandle != 0 {
		a.file = f
		a.mapped = mapped
	} else {
		if mapped != nil {
			mapped.Close()
		}
		if err := f.Close(); err != nil {
			return nil, varkerr.Wrap(varkerr.ErrIoError, err, "load: close archive")
		}
	}
	return a, nil
}

// Close releases any persistent handle or mapping held by the archive.
// It is a no-op when no resources were kept open across operations.
func (a *Archive) Close() error {
	var firstErr error
	if a.mapped != nil {
		if err := a.mapped.Close(); err != nil && firstErr == nil {
			firstErr = varkerr.Wrap(varkerr.ErrIoError, err, "close: unmap archive")
		}
		a.mapped = nil
	}
	if a.file != nil {
		if err := a.file.Close(); err != nil && firstErr == nil {
			firstErr = varkerr.Wrap(varkerr.ErrIoError, err, "close: close archive handle")
		}
		a.file = nil
	}
	return firstErr
}

// Members returns the catalog entries in append order.
func (a *Archive) Members() []container.Entry {
	out := make([]container.Entry, len(a.catalog.Entries))
	copy(out, a.catalog.Entries)
	return out
}

func (a *Archive) withReader(fn func(ioadapter.Reader) error) error {
	if a.flags&FlagPersistentHandle != 0 {
		if a.flags&FlagMmap != 0 {
			return fn(a.mapped)
		}
		return fn(ioadapter.NewBuffered(a.file, false))
	}

	f, err := os.Open(a.path)
	if err != nil {
		return varkerr.Wrap(varkerr.ErrIoError, err, "open archive for read")
	}
	defer f.Close()

	if a.flags&FlagMmap != 0 {
		m, err := ioadapter.NewMapped(f)
		if err != nil {
			return varkerr.Wrap(varkerr.ErrIoError, err, "map archive for read")
		}
		defer m.Close()
		return fn(m)
	}
	return fn(ioadapter.NewBuffered(f, false))
}

// withFile provides one read-write *os.File, over which the append
// protocol builds both a Writer and a plain Buffered reader, since it
// needs to read the current trailer offset and then write the new body
// and trailer through one handle.
func (a *Archive) withFile(fn func(f *os.File) error) error {
	if a.flags&FlagPersistentHandle != 0 {
		return fn(a.file)
	}
	f, err := os.OpenFile(a.path, os.O_RDWR, 0o644)
	if err != nil {
		return varkerr.Wrap(varkerr.ErrIoError, err, "open archive for write")
	}
	defer f.Close()
	return fn(f)
}

func fnv1a64(data []byte) uint64 {
	h := fnv.New64a()
	h.Write(data)
	return h.Sum64()
}

// Append reads sourcePath off disk, encodes it under archivePath in
// either the whole or sharded layout depending on flags, and commits
// it to the archive following the append protocol (spec §4.2).
func (a *Archive) Append(sourcePath, archivePath string, flags AppendFlags) error {
	if a.flags&FlagWrite == 0 {
		return varkerr.New(varkerr.ErrModeViolation, "append requires an archive opened with FlagWrite")
	}

	normPath, err := container.Normalize(archivePath)
	if err != nil {
		return varkerr.Wrap(varkerr.ErrCorrupt, err, "append: normalize archive path")
	}

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		return varkerr.Wrap(varkerr.ErrIoError, err, "append: read source file")
	}

	var body []byte
	var shardSize uint32
	if flags&FlagSharded != 0 {
		shardSize = member.DefaultShardSize
		body, err = member.EncodeSharded(src, shardSize)
	} else {
		body, err = member.EncodeWhole(src)
	}
	if err != nil {
		return varkerr.Wrap(varkerr.ErrIoError, err, "append: encode member body")
	}

	hash := fnv1a64(src)

	return a.withFile(func(f *os.File) error {
		w := ioadapter.NewWriter(f)
		r := ioadapter.NewBuffered(f, false)

		trailerOffset, err := container.ReadTrailerOffset(r)
		if err != nil {
			return varkerr.Wrap(varkerr.ErrIoError, err, "append: read trailer offset")
		}

		// The new body overwrites the old trailer in place (spec §4.2 step
		// 2): it starts exactly where the current trailer starts, not at
		// EOF (which is past the trailer's end, not its start).
		if err := w.WriteAt(int64(trailerOffset), body); err != nil {
			return varkerr.Wrap(varkerr.ErrIoError, err, "append: write member body")
		}

		entry := container.Entry{
			Path:        normPath,
			Offset:      trailerOffset,
			Size:        uint64(len(body)),
			ContentHash: hash,
			ShardSize:   shardSize,
		}
		if err := container.CommitAppend(w, a.catalog, entry, trailerOffset+uint64(len(body))); err != nil {
			return varkerr.Wrap(varkerr.ErrIoError, err, "append: commit trailer")
		}
		return nil
	})
}

func (a *Archive) lookup(path string) (container.Entry, error) {
	normPath, err := container.Normalize(path)
	if err != nil {
		return container.Entry{}, varkerr.Wrap(varkerr.ErrCorrupt, err, "normalize lookup path")
	}
	entry, ok := a.catalog.Lookup(normPath)
	if !ok {
		return container.Entry{}, varkerr.New(varkerr.ErrNotFound, "member \""+normPath+"\" not found")
	}
	return entry, nil
}

// Decompress returns the full decoded content of the member at path,
// verifying it against its stored content hash.
func (a *Archive) Decompress(path string) ([]byte, error) {
	if a.flags&FlagWrite != 0 {
		return nil, varkerr.New(varkerr.ErrModeViolation, "decompress is not allowed on an archive opened with FlagWrite")
	}
	entry, err := a.lookup(path)
	if err != nil {
		return nil, err
	}

	var out []byte
	err = a.withReader(func(r ioadapter.Reader) error {
		var decodeErr error
		if entry.ShardSize == 0 {
			out, decodeErr = member.DecodeWhole(r, int64(entry.Offset), entry.Size)
		} else {
			header, payloadStart, headerErr := member.ParseShardedHeader(r, int64(entry.Offset), entry.Size)
			if headerErr != nil {
				return headerErr
			}
			out, decodeErr = member.DecodeShardedFull(r, payloadStart, header, entry.ShardSize)
		}
		return decodeErr
	})
	if err != nil {
		return nil, err
	}

	if fnv1a64(out) != entry.ContentHash {
		return nil, varkerr.New(varkerr.ErrCorrupt, "decompress: content hash mismatch for \""+entry.Path+"\"")
	}
	return out, nil
}

// DecompressRange returns [offset, offset+length) of the member's
// decoded content without decoding shards outside that window. It
// requires the member to be stored in the sharded layout.
func (a *Archive) DecompressRange(path string, offset, length uint64) ([]byte, error) {
	if a.flags&FlagWrite != 0 {
		return nil, varkerr.New(varkerr.ErrModeViolation, "decompress_range is not allowed on an archive opened with FlagWrite")
	}
	entry, err := a.lookup(path)
	if err != nil {
		return nil, err
	}
	if entry.ShardSize == 0 {
		return nil, varkerr.New(varkerr.ErrUnsupported, "decompress_range requires a sharded member, \""+entry.Path+"\" is whole-layout")
	}

	var out []byte
	err = a.withReader(func(r ioadapter.Reader) error {
		header, payloadStart, headerErr := member.ParseShardedHeader(r, int64(entry.Offset), entry.Size)
		if headerErr != nil {
			return headerErr
		}
		var decodeErr error
		out, decodeErr = member.PartialDecode(r, payloadStart, header, entry.ShardSize, offset, length)
		return decodeErr
	})
	return out, err
}

// UncompressedSize returns the member's decoded length without
// decoding any payload.
func (a *Archive) UncompressedSize(path string) (uint64, error) {
	if a.flags&FlagWrite != 0 {
		return 0, varkerr.New(varkerr.ErrModeViolation, "uncompressed_size is not allowed on an archive opened with FlagWrite")
	}
	entry, err := a.lookup(path)
	if err != nil {
		return 0, err
	}

	var size uint64
	err = a.withReader(func(r ioadapter.Reader) error {
		var sizeErr error
		if entry.ShardSize == 0 {
			size, sizeErr = member.UncompressedSizeWhole(r, int64(entry.Offset), entry.Size)
		} else {
			size, sizeErr = member.UncompressedSizeSharded(r, int64(entry.Offset), entry.Size)
		}
		return sizeErr
	})
	return size, err
}
