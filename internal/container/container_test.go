package container

import (
	"os"
	"path/filepath"
	"testing"

	"vark/internal/ioadapter"
)

func openRW(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return f
}

func TestCreateAppendReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.vark")
	f := openRW(t, path)
	w := ioadapter.NewWriter(f)

	if err := CreateEmpty(w); err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}

	br := ioadapter.NewBuffered(f, false)
	cat, err := LoadCatalog(br)
	if err != nil {
		t.Fatalf("LoadCatalog (empty): %v", err)
	}
	if len(cat.Entries) != 0 {
		t.Fatalf("expected empty catalog, got %d entries", len(cat.Entries))
	}

	entry1 := Entry{Path: "a/x.bin", Offset: HeaderSize + 8, Size: 20, ContentHash: 1}
	if err := CommitAppend(w, cat, entry1, entry1.Offset+entry1.Size); err != nil {
		t.Fatalf("CommitAppend 1: %v", err)
	}
	entry2 := Entry{Path: "a/b/y.bin", Offset: entry1.Offset + entry1.Size, Size: 40, ContentHash: 2, ShardSize: 131072}
	if err := CommitAppend(w, cat, entry2, entry2.Offset+entry2.Size); err != nil {
		t.Fatalf("CommitAppend 2: %v", err)
	}

	reloaded, err := LoadCatalog(br)
	if err != nil {
		t.Fatalf("LoadCatalog (after appends): %v", err)
	}
	if len(reloaded.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(reloaded.Entries))
	}
	if reloaded.Entries[0].Path != "a/x.bin" || reloaded.Entries[1].Path != "a/b/y.bin" {
		t.Fatalf("catalog order mismatch: %+v", reloaded.Entries)
	}
	if reloaded.Entries[0].ShardSize != 0 {
		t.Fatalf("expected whole-layout entry to report ShardSize 0, got %d", reloaded.Entries[0].ShardSize)
	}
	if reloaded.Entries[1].ShardSize != 131072 {
		t.Fatalf("expected sharded entry ShardSize 131072, got %d", reloaded.Entries[1].ShardSize)
	}

	e, ok := reloaded.Lookup("a/b/y.bin")
	if !ok || e.ContentHash != 2 {
		t.Fatalf("lookup failed or wrong entry: %+v ok=%v", e, ok)
	}
	if _, ok := reloaded.Lookup("nope"); ok {
		t.Fatalf("expected lookup miss")
	}
}

func TestLegacyArchiveWithoutExtensionBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.vark")
	f := openRW(t, path)
	w := ioadapter.NewWriter(f)

	if err := CreateEmpty(w); err != nil {
		t.Fatalf("CreateEmpty: %v", err)
	}

	// Hand-write a trailer with one entry and no VSHD block, simulating
	// an archive from before sharding existed.
	cat := NewCatalog()
	if err := cat.Add(Entry{Path: "legacy.txt", Offset: HeaderSize + 8, Size: 10, ContentHash: 42}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	full := EncodeTrailer(cat.Entries)
	// Strip everything from the VSHD magic onward: 8 (count) + per-entry
	// (4 + len(path) + 24) bytes precede it.
	entryBytes := 4 + len("legacy.txt") + 24
	noExtLen := 8 + entryBytes
	trailerNoExt := full[:noExtLen]

	newOffset, err := w.Append(trailerNoExt)
	if err != nil {
		t.Fatalf("append trailer: %v", err)
	}
	if err := w.WriteAt(TrailerOffsetFieldOffset, EncodeTrailerOffset(uint64(newOffset))); err != nil {
		t.Fatalf("commit offset: %v", err)
	}

	br := ioadapter.NewBuffered(f, false)
	loaded, err := LoadCatalog(br)
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}
	if len(loaded.Entries) != 1 || loaded.Entries[0].Path != "legacy.txt" {
		t.Fatalf("unexpected catalog: %+v", loaded.Entries)
	}
	if loaded.Entries[0].ShardSize != 0 {
		t.Fatalf("expected ShardSize 0 for legacy entry, got %d", loaded.Entries[0].ShardSize)
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"a/b", "a/b", false},
		{"./a/b", "a/b", false},
		{`a\b`, "a/b", false},
		{"a//b", "a/b", false},
		{"../a", "", true},
		{"a/../b", "", true},
		{".", "", true},
	}
	for _, c := range cases {
		got, err := Normalize(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("Normalize(%q): expected error, got %q", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("Normalize(%q): unexpected error: %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("Normalize(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
