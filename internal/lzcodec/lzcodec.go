// Package lzcodec is the archive engine's black-box LZ compressor
// collaborator (spec §6): compress never fails on non-empty input and
// decompress reports the number of bytes it actually produced.
//
// It wraps github.com/pierrec/lz4/v4's block API rather than its
// streaming frame API (the one agcp, this module's teacher, uses for
// whole-file compression) because the sharded member layout needs
// independently decodable frames: a streaming lz4 frame cannot be
// entered at an arbitrary byte offset, but a block can.
package lzcodec

import (
	"fmt"

	"github.com/pierrec/lz4/v4"
)

// tag bytes prefixed to every non-empty compressed payload.
const (
	tagBlock  byte = 0 // payload is an lz4 block, decompress with UncompressBlock
	tagStored byte = 1 // payload is the literal source bytes, uncompressed
)

// Compress returns the compressed form of src. It never returns an
// error for non-empty input; it returns a 0-length result only when
// src itself is empty.
func Compress(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return nil, nil
	}

	bound := lz4.CompressBlockBound(len(src))
	dst := make([]byte, 1+bound)
	n, err := lz4.CompressBlock(src, dst[1:], nil)
	if err != nil {
		return nil, fmt.Errorf("lzcodec: compress block: %w", err)
	}
	if n == 0 {
		// lz4.CompressBlock reports n == 0 when src could not be shrunk;
		// fall back to a stored (uncompressed) frame so the contract
		// "never fails on non-empty input" always holds.
		dst = make([]byte, 1+len(src))
		dst[0] = tagStored
		copy(dst[1:], src)
		return dst, nil
	}
	dst[0] = tagBlock
	return dst[:1+n], nil
}

// Decompress decodes compressed into a buffer of exactly
// expectedLen bytes. An input/output length mismatch, or any error
// from the underlying decoder, is reported as an error; callers treat
// this as archive corruption.
func Decompress(compressed []byte, expectedLen int) ([]byte, error) {
	if expectedLen == 0 {
		return []byte{}, nil
	}
	if len(compressed) == 0 {
		return nil, fmt.Errorf("lzcodec: empty compressed payload for %d expected bytes", expectedLen)
	}

	tag, payload := compressed[0], compressed[1:]
	switch tag {
	case tagStored:
		if len(payload) != expectedLen {
			return nil, fmt.Errorf("lzcodec: stored payload length %d != expected %d", len(payload), expectedLen)
		}
		out := make([]byte, expectedLen)
		copy(out, payload)
		return out, nil
	case tagBlock:
		out := make([]byte, expectedLen)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("lzcodec: uncompress block: %w", err)
		}
		if n != expectedLen {
			return nil, fmt.Errorf("lzcodec: decompressed %d bytes, expected %d", n, expectedLen)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("lzcodec: unknown frame tag %d", tag)
	}
}
