package container

import (
	"encoding/binary"
	"fmt"
)

// HeaderSize is the fixed header length: 4-byte magic + 8-byte trailer offset.
const HeaderSize = 12

var magic = [4]byte{'V', 'A', 'R', 'K'}

// EncodeHeader produces the 12-byte fixed header for trailerOffset.
func EncodeHeader(trailerOffset uint64) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], magic[:])
	binary.LittleEndian.PutUint64(buf[4:12], trailerOffset)
	return buf
}

// DecodeHeader validates the magic and returns the trailer offset.
func DecodeHeader(buf []byte) (uint64, error) {
	if len(buf) < HeaderSize {
		return 0, fmt.Errorf("container: header truncated: got %d bytes, want %d", len(buf), HeaderSize)
	}
	if string(buf[0:4]) != string(magic[:]) {
		return 0, fmt.Errorf("container: bad magic %q", buf[0:4])
	}
	return binary.LittleEndian.Uint64(buf[4:12]), nil
}

// EncodeTrailerOffset encodes just the 8-byte trailer-offset field, for
// the in-place rewrite at byte 4 that commits an append.
func EncodeTrailerOffset(trailerOffset uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, trailerOffset)
	return buf
}

// TrailerOffsetFieldOffset is the absolute file offset of the
// trailer-offset field within the fixed header.
const TrailerOffsetFieldOffset = 4
