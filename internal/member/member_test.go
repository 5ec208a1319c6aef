package member

import (
	"bytes"
	"math/rand"
	"testing"
)

// memReader is a minimal ioadapter.Reader over an in-memory buffer,
// standing in for either backend since both must agree byte-for-byte.
type memReader struct {
	data []byte
}

func (m *memReader) Slice(offset int64, length int) ([]byte, error) {
	if length == 0 {
		return nil, nil
	}
	return m.data[offset : offset+int64(length)], nil
}

func (m *memReader) Close() error { return nil }

func TestWholeRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		[]byte("Small text file"),
		bytes.Repeat([]byte("x"), 1<<20),
	}
	for _, src := range cases {
		body, err := EncodeWhole(src)
		if err != nil {
			t.Fatalf("EncodeWhole: %v", err)
		}
		if len(src) == 0 && len(body) != 8 {
			t.Fatalf("empty source whole body: got size %d, want 8", len(body))
		}
		r := &memReader{data: body}
		got, err := DecodeWhole(r, 0, uint64(len(body)))
		if err != nil {
			t.Fatalf("DecodeWhole: %v", err)
		}
		if !bytes.Equal(got, src) && !(len(got) == 0 && len(src) == 0) {
			t.Fatalf("round trip mismatch: got %d bytes want %d", len(got), len(src))
		}
		size, err := UncompressedSizeWhole(r, 0, uint64(len(body)))
		if err != nil {
			t.Fatalf("UncompressedSizeWhole: %v", err)
		}
		if size != uint64(len(src)) {
			t.Fatalf("UncompressedSizeWhole = %d, want %d", size, len(src))
		}
	}
}

func TestShardedEmptySource(t *testing.T) {
	body, err := EncodeSharded(nil, DefaultShardSize)
	if err != nil {
		t.Fatalf("EncodeSharded: %v", err)
	}
	r := &memReader{data: body}
	header, payloadStart, err := ParseShardedHeader(r, 0, uint64(len(body)))
	if err != nil {
		t.Fatalf("ParseShardedHeader: %v", err)
	}
	if header.ShardCount != 0 || header.TotalUncompressed != 0 {
		t.Fatalf("expected shard_count=0 total=0, got %+v", header)
	}
	if len(header.Offsets) != 1 || header.Offsets[0] != 0 {
		t.Fatalf("expected offsets=[0], got %v", header.Offsets)
	}
	got, err := PartialDecode(r, payloadStart, header, DefaultShardSize, 0, 0)
	if err != nil {
		t.Fatalf("PartialDecode(0,0): %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %d bytes", len(got))
	}
}

func TestShardedExactBoundary(t *testing.T) {
	shardSize := uint32(1024)
	src := bytes.Repeat([]byte{'a'}, int(shardSize))
	body, err := EncodeSharded(src, shardSize)
	if err != nil {
		t.Fatalf("EncodeSharded: %v", err)
	}
	r := &memReader{data: body}
	header, payloadStart, err := ParseShardedHeader(r, 0, uint64(len(body)))
	if err != nil {
		t.Fatalf("ParseShardedHeader: %v", err)
	}
	if header.ShardCount != 1 {
		t.Fatalf("expected shard_count=1, got %d", header.ShardCount)
	}
	full, err := DecodeShardedFull(r, payloadStart, header, shardSize)
	if err != nil {
		t.Fatalf("DecodeShardedFull: %v", err)
	}
	if !bytes.Equal(full, src) {
		t.Fatalf("full decode mismatch")
	}
}

func TestShardedBoundarySpan(t *testing.T) {
	shardSize := uint32(1024)
	src := make([]byte, int(shardSize)+1)
	for i := range src {
		src[i] = byte(i % 256)
	}
	body, err := EncodeSharded(src, shardSize)
	if err != nil {
		t.Fatalf("EncodeSharded: %v", err)
	}
	r := &memReader{data: body}
	header, payloadStart, err := ParseShardedHeader(r, 0, uint64(len(body)))
	if err != nil {
		t.Fatalf("ParseShardedHeader: %v", err)
	}
	if header.ShardCount != 2 {
		t.Fatalf("expected shard_count=2, got %d", header.ShardCount)
	}

	off := uint64(shardSize) - 10
	got, err := PartialDecode(r, payloadStart, header, shardSize, off, 11)
	if err != nil {
		t.Fatalf("PartialDecode boundary span: %v", err)
	}
	want := src[off : off+11]
	if !bytes.Equal(got, want) {
		t.Fatalf("boundary span mismatch: got %v want %v", got, want)
	}
}

func TestShardedOutOfRange(t *testing.T) {
	shardSize := uint32(1024)
	src := bytes.Repeat([]byte{'z'}, int(shardSize))
	body, err := EncodeSharded(src, shardSize)
	if err != nil {
		t.Fatalf("EncodeSharded: %v", err)
	}
	r := &memReader{data: body}
	header, payloadStart, err := ParseShardedHeader(r, 0, uint64(len(body)))
	if err != nil {
		t.Fatalf("ParseShardedHeader: %v", err)
	}
	if _, err := PartialDecode(r, payloadStart, header, shardSize, header.TotalUncompressed, 1); err == nil {
		t.Fatalf("expected OutOfRange error for request past end")
	}
}

func TestShardedRandomAccessFuzz(t *testing.T) {
	const size = 5 * 1024 * 1024
	src := make([]byte, size)
	for i := range src {
		src[i] = byte(i % 256)
	}
	body, err := EncodeSharded(src, DefaultShardSize)
	if err != nil {
		t.Fatalf("EncodeSharded: %v", err)
	}
	r := &memReader{data: body}
	header, payloadStart, err := ParseShardedHeader(r, 0, uint64(len(body)))
	if err != nil {
		t.Fatalf("ParseShardedHeader: %v", err)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		length := uint64(rng.Intn(100000) + 1)
		maxOffset := uint64(size) - length
		off := uint64(rng.Int63n(int64(maxOffset) + 1))

		got, err := PartialDecode(r, payloadStart, header, DefaultShardSize, off, length)
		if err != nil {
			t.Fatalf("PartialDecode(%d,%d): %v", off, length, err)
		}
		want := src[off : off+length]
		if !bytes.Equal(got, want) {
			t.Fatalf("PartialDecode(%d,%d) mismatch", off, length)
		}
	}
}

func TestSharded131073BytesOfY(t *testing.T) {
	src := bytes.Repeat([]byte{'y'}, 131073)
	body, err := EncodeSharded(src, DefaultShardSize)
	if err != nil {
		t.Fatalf("EncodeSharded: %v", err)
	}
	r := &memReader{data: body}
	header, payloadStart, err := ParseShardedHeader(r, 0, uint64(len(body)))
	if err != nil {
		t.Fatalf("ParseShardedHeader: %v", err)
	}
	if header.ShardCount != 2 || header.TotalUncompressed != 131073 {
		t.Fatalf("unexpected header: %+v", header)
	}
	got, err := PartialDecode(r, payloadStart, header, DefaultShardSize, 131062, 11)
	if err != nil {
		t.Fatalf("PartialDecode: %v", err)
	}
	if len(got) != 11 {
		t.Fatalf("expected 11 bytes, got %d", len(got))
	}
	for _, b := range got {
		if b != 'y' {
			t.Fatalf("expected all 'y' bytes, got %v", got)
		}
	}
}
