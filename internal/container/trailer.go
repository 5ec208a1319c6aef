package container

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"vark/internal/ioadapter"
)

var extMagic = [4]byte{'V', 'S', 'H', 'D'}

// EncodeTrailer serializes entry_count, the entries, and the VSHD
// extension block (spec §4.2, §6). Vark always writes the extension
// block on every trailer rewrite, which is how an archive loaded
// without one gets upgraded the moment it is appended to (spec §9).
func EncodeTrailer(entries []Entry) []byte {
	var buf bytes.Buffer

	var countBuf [8]byte
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(entries)))
	buf.Write(countBuf[:])

	for _, e := range entries {
		pathBytes := []byte(e.Path)
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(pathBytes)))
		buf.Write(lenBuf[:])
		buf.Write(pathBytes)

		var fields [24]byte
		binary.LittleEndian.PutUint64(fields[0:8], e.Offset)
		binary.LittleEndian.PutUint64(fields[8:16], e.Size)
		binary.LittleEndian.PutUint64(fields[16:24], e.ContentHash)
		buf.Write(fields[:])
	}

	buf.Write(extMagic[:])
	binary.LittleEndian.PutUint64(countBuf[:], uint64(len(entries)))
	buf.Write(countBuf[:])
	for _, e := range entries {
		var shardBuf [4]byte
		binary.LittleEndian.PutUint32(shardBuf[:], e.ShardSize)
		buf.Write(shardBuf[:])
	}

	return buf.Bytes()
}

// cursor is a small sequential reader over an ioadapter.Reader,
// advancing an absolute file offset as it consumes fields. Each
// returned slice must be consumed (copied out / parsed) before the
// next call, since the buffered backend reuses one scratch buffer.
type cursor struct {
	r      ioadapter.Reader
	offset int64
}

func (c *cursor) take(n int) ([]byte, error) {
	b, err := c.r.Slice(c.offset, n)
	if err != nil {
		return nil, err
	}
	c.offset += int64(n)
	return b, nil
}

func (c *cursor) uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) uint32() (uint32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// DecodeTrailer reads the entry table starting at offset, then
// tolerantly attempts the VSHD extension block (spec §4.2's
// backwards-compatibility contract): if it's absent, has the wrong
// magic, or its count doesn't match, every entry's ShardSize defaults
// to 0. A block cut short partway through the shard sizes keeps the
// values read before the cut and leaves the rest at 0.
func DecodeTrailer(r ioadapter.Reader, offset int64) ([]Entry, error) {
	c := &cursor{r: r, offset: offset}

	count, err := c.uint64()
	if err != nil {
		return nil, fmt.Errorf("container: read entry count: %w", err)
	}

	entries := make([]Entry, 0, count)
	for i := uint64(0); i < count; i++ {
		pathLen, err := c.uint32()
		if err != nil {
			return nil, fmt.Errorf("container: entry %d: read path length: %w", i, err)
		}
		pathBytes, err := c.take(int(pathLen))
		if err != nil {
			return nil, fmt.Errorf("container: entry %d: read path: %w", i, err)
		}
		path := string(pathBytes)

		off, err := c.uint64()
		if err != nil {
			return nil, fmt.Errorf("container: entry %d: read offset: %w", i, err)
		}
		size, err := c.uint64()
		if err != nil {
			return nil, fmt.Errorf("container: entry %d: read size: %w", i, err)
		}
		hash, err := c.uint64()
		if err != nil {
			return nil, fmt.Errorf("container: entry %d: read hash: %w", i, err)
		}
		entries = append(entries, Entry{Path: path, Offset: off, Size: size, ContentHash: hash})
	}

	tryDecodeExtension(c, entries, count)
	return entries, nil
}

// tryDecodeExtension attempts the VSHD block at the cursor's current
// position. Any failure (short read, bad magic, count mismatch) is
// swallowed. A missing magic, a bad magic or a count mismatch leaves
// every entry's ShardSize at 0, which is exactly the contract for
// archives written before sharding existed.
func tryDecodeExtension(c *cursor, entries []Entry, entryCount uint64) {
	magicBytes, err := c.take(4)
	if err != nil || string(magicBytes) != string(extMagic[:]) {
		return
	}
	extCount, err := c.uint64()
	if err != nil || extCount != entryCount {
		return
	}
	for i := range entries {
		shardSize, err := c.uint32()
		if err != nil {
			// Partial extension block: leave already-populated entries
			// (if any) as-is and stop. Entries from this one on keep
			// ShardSize 0 and are read as whole-layout members.
			return
		}
		entries[i].ShardSize = shardSize
	}
}
