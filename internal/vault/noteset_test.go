package vault

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNoteSet_AddAndResolve(t *testing.T) {
	ns := NewNoteSet(t.TempDir())
	id := ns.AddVirtual("notes/a.md", []byte("# Title\nsecond line\n"))
	n := ns.Get(id)

	if n.Rel != "notes/a.md" {
		t.Fatalf("rel = %q", n.Rel)
	}
	if n.Flags&NoteVirtual == 0 {
		t.Fatal("expected virtual flag")
	}

	lc := n.Resolve(0)
	if lc.Line != 1 || lc.Col != 1 {
		t.Fatalf("offset 0 resolved to %d:%d", lc.Line, lc.Col)
	}
	lc = n.Resolve(8) // 's' of "second"
	if lc.Line != 2 || lc.Col != 1 {
		t.Fatalf("offset 8 resolved to %d:%d", lc.Line, lc.Col)
	}
}

func TestNoteSet_Line(t *testing.T) {
	ns := NewNoteSet(t.TempDir())
	id := ns.AddVirtual("a.md", []byte("one\ntwo\nthree"))
	n := ns.Get(id)

	tests := []struct {
		num  int
		want string
	}{
		{1, "one"},
		{2, "two"},
		{3, "three"},
		{4, ""},
		{0, ""},
	}
	for _, tt := range tests {
		if got := n.Line(tt.num); got != tt.want {
			t.Errorf("Line(%d) = %q, want %q", tt.num, got, tt.want)
		}
	}
}

func TestNoteSet_LoadNormalizes(t *testing.T) {
	root := t.TempDir()
	raw := []byte{0xEF, 0xBB, 0xBF}
	raw = append(raw, []byte("line\r\nnext\r\n")...)
	if err := os.WriteFile(filepath.Join(root, "n.md"), raw, 0o644); err != nil {
		t.Fatal(err)
	}

	ns := NewNoteSet(root)
	id, err := ns.Load("n.md")
	if err != nil {
		t.Fatal(err)
	}
	n := ns.Get(id)
	if string(n.Content) != "line\nnext\n" {
		t.Fatalf("content = %q", n.Content)
	}
	if n.Flags&NoteHadBOM == 0 || n.Flags&NoteNormalizedCRLF == 0 {
		t.Fatalf("flags = %b", n.Flags)
	}
	if n.Size != int64(len(raw)) {
		t.Fatalf("size = %d, want on-disk size %d", n.Size, len(raw))
	}
	if n.ModTime == 0 {
		t.Fatal("expected mod time")
	}
}

func TestDiscover_SkipsHiddenAndNonMarkdown(t *testing.T) {
	root := t.TempDir()
	mustWrite := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	mustWrite("a.md", "a")
	mustWrite("sub/b.md", "b")
	mustWrite("sub/img.png", "not a note")
	mustWrite(".obsidian/workspace.md", "hidden")
	mustWrite(".vaultlint/results.bin", "cache")

	got, err := Discover(root)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"a.md", "sub/b.md"}
	if len(got) != len(want) {
		t.Fatalf("discovered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("discovered %v, want %v", got, want)
		}
	}
}

func TestFingerprint_Equal(t *testing.T) {
	a := Fingerprint{Size: 10, ModTime: 100}
	b := Fingerprint{Size: 10, ModTime: 100}
	if !a.Equal(b) {
		t.Fatal("same size+mtime should match")
	}
	b.ModTime = 101
	if a.Equal(b) {
		t.Fatal("mtime change should not match")
	}

	var h1, h2 [32]byte
	h1[0], h2[0] = 1, 2
	a = Fingerprint{Size: 10, ModTime: 100, Hash: h1, HasHash: true}
	b = Fingerprint{Size: 10, ModTime: 100, Hash: h2, HasHash: true}
	if a.Equal(b) {
		t.Fatal("hash mismatch should not match")
	}
	b.Hash = h1
	if !a.Equal(b) {
		t.Fatal("hash match should match")
	}
}
