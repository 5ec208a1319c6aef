package member

import (
	"encoding/binary"
	"fmt"

	"vark/internal/ioadapter"
	"vark/internal/lzcodec"
	"vark/internal/varkerr"
)

// DefaultShardSize is the uncompressed window size used when the
// caller does not specify one (spec §4.3, glossary).
const DefaultShardSize uint32 = 131072

var shardedMagic = [4]byte{'V', 'S', 'H', 'F'}

// shardedFixedHeaderLen is magic(4) + shard_count(4) + total_uncompressed(8).
const shardedFixedHeaderLen = 16

// ShardedHeader is the parsed fixed portion plus cumulative offset
// array of a sharded member body.
type ShardedHeader struct {
	ShardCount        uint32
	TotalUncompressed uint64
	Offsets           []uint64 // length ShardCount+1, cumulative compressed length at each shard start
}

// shardCountFor returns ceil(n / shardSize), or 0 if n == 0.
func shardCountFor(n uint64, shardSize uint32) uint32 {
	if n == 0 {
		return 0
	}
	return uint32((n + uint64(shardSize) - 1) / uint64(shardSize))
}

// EncodeSharded splits src into shardSize windows (DefaultShardSize if
// 0), compresses each independently, and produces the sharded body:
// magic, shard_count, total_uncompressed, the cumulative offset array,
// then the concatenated compressed frames.
func EncodeSharded(src []byte, shardSize uint32) ([]byte, error) {
	if shardSize == 0 {
		shardSize = DefaultShardSize
	}
	total := uint64(len(src))
	count := shardCountFor(total, shardSize)

	offsets := make([]uint64, count+1)
	frames := make([][]byte, count)
	for i := uint32(0); i < count; i++ {
		ustart := uint64(i) * uint64(shardSize)
		uend := ustart + uint64(shardSize)
		if uend > total {
			uend = total
		}
		frame, err := lzcodec.Compress(src[ustart:uend])
		if err != nil {
			return nil, fmt.Errorf("member: compress shard %d: %w", i, err)
		}
		frames[i] = frame
		offsets[i+1] = offsets[i] + uint64(len(frame))
	}

	headerLen := shardedFixedHeaderLen + 8*(int(count)+1)
	payloadLen := int(offsets[count])
	body := make([]byte, headerLen+payloadLen)

	copy(body[0:4], shardedMagic[:])
	binary.LittleEndian.PutUint32(body[4:8], count)
	binary.LittleEndian.PutUint64(body[8:16], total)
	for i, off := range offsets {
		binary.LittleEndian.PutUint64(body[16+8*i:16+8*i+8], off)
	}

	cursor := headerLen
	for _, f := range frames {
		copy(body[cursor:], f)
		cursor += len(f)
	}

	return body, nil
}

// ParseShardedHeader reads and validates a sharded body's magic,
// shard_count, total_uncompressed, and cumulative offset array,
// copying the offset array out of the backend (even in mapped mode,
// per spec §9's "uniform pointer" rationale) into an owned slice.
// It returns the header and the absolute offset where the first
// compressed shard frame begins.
func ParseShardedHeader(r ioadapter.Reader, bodyOffset int64, bodySize uint64) (ShardedHeader, int64, error) {
	if bodySize < shardedFixedHeaderLen {
		return ShardedHeader{}, 0, varkerr.New(varkerr.ErrCorrupt, fmt.Sprintf("sharded body size %d smaller than fixed header", bodySize))
	}
	fixed, err := r.Slice(bodyOffset, shardedFixedHeaderLen)
	if err != nil {
		return ShardedHeader{}, 0, varkerr.Wrap(varkerr.ErrIoError, err, "member: read sharded header")
	}
	if string(fixed[0:4]) != string(shardedMagic[:]) {
		return ShardedHeader{}, 0, varkerr.New(varkerr.ErrCorrupt, fmt.Sprintf("bad sharded magic %q", fixed[0:4]))
	}
	count := binary.LittleEndian.Uint32(fixed[4:8])
	total := binary.LittleEndian.Uint64(fixed[8:16])

	offsetsLen := 8 * (int(count) + 1)
	offsetBytes, err := r.Slice(bodyOffset+shardedFixedHeaderLen, offsetsLen)
	if err != nil {
		return ShardedHeader{}, 0, varkerr.Wrap(varkerr.ErrIoError, err, "member: read shard offset array")
	}
	offsets := make([]uint64, count+1)
	for i := range offsets {
		offsets[i] = binary.LittleEndian.Uint64(offsetBytes[8*i : 8*i+8])
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return ShardedHeader{}, 0, varkerr.New(varkerr.ErrCorrupt, "shard offset array is not monotonically non-decreasing")
		}
	}

	payloadStart := bodyOffset + shardedFixedHeaderLen + int64(offsetsLen)
	return ShardedHeader{ShardCount: count, TotalUncompressed: total, Offsets: offsets}, payloadStart, nil
}

// UncompressedSizeSharded reads only the magic and total_uncompressed
// field, without touching the offset array or payload.
func UncompressedSizeSharded(r ioadapter.Reader, bodyOffset int64, bodySize uint64) (uint64, error) {
	if bodySize < shardedFixedHeaderLen {
		return 0, varkerr.New(varkerr.ErrCorrupt, fmt.Sprintf("sharded body size %d smaller than fixed header", bodySize))
	}
	fixed, err := r.Slice(bodyOffset, shardedFixedHeaderLen)
	if err != nil {
		return 0, varkerr.Wrap(varkerr.ErrIoError, err, "member: read sharded header")
	}
	if string(fixed[0:4]) != string(shardedMagic[:]) {
		return 0, varkerr.New(varkerr.ErrCorrupt, fmt.Sprintf("bad sharded magic %q", fixed[0:4]))
	}
	return binary.LittleEndian.Uint64(fixed[8:16]), nil
}

// windowBounds returns the uncompressed byte range [ustart, ustart+ulen)
// that shard i covers.
func windowBounds(i uint32, shardSize uint32, total uint64) (ustart uint64, ulen uint64) {
	ustart = uint64(i) * uint64(shardSize)
	uend := ustart + uint64(shardSize)
	if uend > total {
		uend = total
	}
	return ustart, uend - ustart
}

// DecodeShardedFull decompresses every shard in order and concatenates
// them, reproducing the full original content. Used to serve a plain
// Decompress on a sharded member.
func DecodeShardedFull(r ioadapter.Reader, payloadStart int64, header ShardedHeader, shardSize uint32) ([]byte, error) {
	out := make([]byte, 0, header.TotalUncompressed)
	for i := uint32(0); i < header.ShardCount; i++ {
		cstart := header.Offsets[i]
		clen := header.Offsets[i+1] - cstart
		_, ulen := windowBounds(i, shardSize, header.TotalUncompressed)

		var compressed []byte
		var err error
		if clen > 0 {
			compressed, err = r.Slice(payloadStart+int64(cstart), int(clen))
			if err != nil {
				return nil, varkerr.Wrap(varkerr.ErrIoError, err, fmt.Sprintf("member: read shard %d", i))
			}
		}
		decoded, err := lzcodec.Decompress(compressed, int(ulen))
		if err != nil {
			return nil, varkerr.Wrap(varkerr.ErrCorrupt, err, fmt.Sprintf("member: decompress shard %d", i))
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// PartialDecode implements spec §4.3's windowed random-access
// algorithm: translate [offset, offset+length) on the uncompressed
// stream into the minimum span of shards, decode exactly those, then
// trim to the requested range.
func PartialDecode(r ioadapter.Reader, payloadStart int64, header ShardedHeader, shardSize uint32, offset, length uint64) ([]byte, error) {
	if length == 0 {
		return []byte{}, nil
	}
	if offset+length > header.TotalUncompressed {
		return nil, varkerr.New(varkerr.ErrOutOfRange, fmt.Sprintf("range [%d,%d) exceeds uncompressed size %d", offset, offset+length, header.TotalUncompressed))
	}

	first := uint32(offset / uint64(shardSize))
	last := uint32((offset + length - 1) / uint64(shardSize))
	sliceStartInFirst := offset - uint64(first)*uint64(shardSize)

	firstStart := uint64(first) * uint64(shardSize)
	lastEnd := uint64(last+1) * uint64(shardSize)
	if lastEnd > header.TotalUncompressed {
		lastEnd = header.TotalUncompressed
	}
	oversizedLen := lastEnd - firstStart

	working := make([]byte, oversizedLen)
	for i := first; i <= last; i++ {
		cstart := header.Offsets[i]
		clen := header.Offsets[i+1] - cstart
		_, ulen := windowBounds(i, shardSize, header.TotalUncompressed)

		var compressed []byte
		var err error
		if clen > 0 {
			compressed, err = r.Slice(payloadStart+int64(cstart), int(clen))
			if err != nil {
				return nil, varkerr.Wrap(varkerr.ErrIoError, err, fmt.Sprintf("member: read shard %d", i))
			}
		}
		decoded, err := lzcodec.Decompress(compressed, int(ulen))
		if err != nil {
			return nil, varkerr.Wrap(varkerr.ErrCorrupt, err, fmt.Sprintf("member: decompress shard %d", i))
		}
		if uint64(len(decoded)) != ulen {
			return nil, varkerr.New(varkerr.ErrCorrupt, fmt.Sprintf("shard %d: decoder produced %d bytes, expected %d", i, len(decoded), ulen))
		}
		copy(working[uint64(i-first)*uint64(shardSize):], decoded)
	}

	if sliceStartInFirst > 0 {
		working = working[sliceStartInFirst:]
	}
	return working[:length], nil
}
