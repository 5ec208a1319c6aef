// Package member implements the Member Codec (spec §4.3): encoding
// and decoding a single member's body in either whole or sharded
// layout, plus the sharded layout's partial-decode algorithm.
package member

import (
	"encoding/binary"
	"fmt"

	"vark/internal/ioadapter"
	"vark/internal/lzcodec"
	"vark/internal/varkerr"
)

// EncodeWhole produces a whole-layout body: an 8-byte uncompressed
// length followed by one LZ frame covering all of src. An empty src is
// valid and yields a body of exactly 8 bytes.
func EncodeWhole(src []byte) ([]byte, error) {
	frame, err := lzcodec.Compress(src)
	if err != nil {
		return nil, fmt.Errorf("member: compress whole body: %w", err)
	}
	body := make([]byte, 8+len(frame))
	binary.LittleEndian.PutUint64(body[0:8], uint64(len(src)))
	copy(body[8:], frame)
	return body, nil
}

// DecodeWhole reads a whole-layout body of bodySize bytes starting at
// bodyOffset and returns the decompressed member content.
func DecodeWhole(r ioadapter.Reader, bodyOffset int64, bodySize uint64) ([]byte, error) {
	if bodySize < 8 {
		return nil, varkerr.New(varkerr.ErrCorrupt, fmt.Sprintf("whole body size %d smaller than length header", bodySize))
	}
	lenBuf, err := r.Slice(bodyOffset, 8)
	if err != nil {
		return nil, varkerr.Wrap(varkerr.ErrIoError, err, "member: read uncompressed length")
	}
	uncompressedLen := binary.LittleEndian.Uint64(lenBuf)

	frameLen := int(bodySize - 8)
	var frame []byte
	if frameLen > 0 {
		frame, err = r.Slice(bodyOffset+8, frameLen)
		if err != nil {
			return nil, varkerr.Wrap(varkerr.ErrIoError, err, "member: read compressed frame")
		}
	}

	out, err := lzcodec.Decompress(frame, int(uncompressedLen))
	if err != nil {
		return nil, varkerr.Wrap(varkerr.ErrCorrupt, err, "member: decompress whole body")
	}
	return out, nil
}

// UncompressedSizeWhole returns a whole-layout body's uncompressed
// length without touching the compressed payload.
func UncompressedSizeWhole(r ioadapter.Reader, bodyOffset int64, bodySize uint64) (uint64, error) {
	if bodySize < 8 {
		return 0, varkerr.New(varkerr.ErrCorrupt, fmt.Sprintf("whole body size %d smaller than length header", bodySize))
	}
	lenBuf, err := r.Slice(bodyOffset, 8)
	if err != nil {
		return 0, varkerr.Wrap(varkerr.ErrIoError, err, "member: read uncompressed length")
	}
	return binary.LittleEndian.Uint64(lenBuf), nil
}
