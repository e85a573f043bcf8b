package vault

import (
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"fortio.org/safecast"
)

// NoteSet manages the notes of one vault and resolves positions in them.
// It is populated by a single goroutine during the scan phase; reads after
// population are safe from any goroutine.
type NoteSet struct {
	notes []Note
	index map[string]NoteID // vault-relative slash path -> id
	root  string
}

// NewNoteSet creates an empty NoteSet rooted at the given vault directory.
func NewNoteSet(root string) *NoteSet {
	return &NoteSet{
		notes: make([]Note, 0),
		index: make(map[string]NoteID),
		root:  root,
	}
}

// Root returns the vault root directory.
func (ns *NoteSet) Root() string {
	if ns.root == "" {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
	}
	return ns.root
}

// Add stores a note from normalized bytes, computes the line index and hash,
// and returns its NoteID. The index always points at the latest version of
// a path.
func (ns *NoteSet) Add(rel string, content []byte, flags NoteFlags) NoteID {
	rel = NormalizeRel(rel)
	hash := sha256.Sum256(content)
	lineIdx := buildLineIndex(content)

	n, err := safecast.Conv[uint32](len(ns.notes))
	if err != nil {
		panic(fmt.Errorf("note count overflow: %w", err))
	}
	id := NoteID(n)
	ns.notes = append(ns.notes, Note{
		ID:      id,
		Rel:     rel,
		Content: content,
		LineIdx: lineIdx,
		Size:    int64(len(content)),
		Hash:    hash,
		Flags:   flags,
	})
	ns.index[rel] = id
	return id
}

// ReadNote reads and normalizes one note from disk without storing it.
// Callers that parallelize IO read with this and Add sequentially.
func ReadNote(root, rel string) ([]byte, NoteFlags, os.FileInfo, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	// #nosec G304 -- path comes from vault discovery
	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, 0, nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, 0, nil, err
	}

	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)

	flags := NoteFlags(0)
	if hadBOM {
		flags |= NoteHadBOM
	}
	if hadCRLF {
		flags |= NoteNormalizedCRLF
	}
	return content, flags, info, nil
}

// Load reads a note from disk, normalizes BOM/CRLF, and calls Add.
// rel is the vault-relative slash path.
func (ns *NoteSet) Load(rel string) (NoteID, error) {
	content, flags, info, err := ReadNote(ns.Root(), rel)
	if err != nil {
		return 0, err
	}
	id := ns.Add(rel, content, flags)
	ns.SetStat(id, info.Size(), info.ModTime().UnixNano())
	return id, nil
}

// SetStat overrides a note's on-disk size and modtime; Add records the
// normalized content length, which can differ from the file size.
func (ns *NoteSet) SetStat(id NoteID, size, modTime int64) {
	ns.notes[id].Size = size
	ns.notes[id].ModTime = modTime
}

// AddVirtual adds an in-memory note (tests, stdin) with the NoteVirtual flag.
func (ns *NoteSet) AddVirtual(rel string, content []byte) NoteID {
	return ns.Add(rel, content, NoteVirtual)
}

// Get returns the note for the given ID.
func (ns *NoteSet) Get(id NoteID) *Note {
	return &ns.notes[id]
}

// ByRel returns the latest note for a vault-relative path, if loaded.
func (ns *NoteSet) ByRel(rel string) (*Note, bool) {
	if id, ok := ns.index[NormalizeRel(rel)]; ok {
		return &ns.notes[id], true
	}
	return nil, false
}

// Len returns the number of loaded notes.
func (ns *NoteSet) Len() int { return len(ns.notes) }

// Paths returns the vault-relative paths of all loaded notes, sorted.
func (ns *NoteSet) Paths() []string {
	out := make([]string, 0, len(ns.index))
	for rel := range ns.index {
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

// Contents returns a path -> content map of the latest note versions.
// Used as the batch input for link maintenance.
func (ns *NoteSet) Contents() map[string]string {
	out := make(map[string]string, len(ns.index))
	for rel, id := range ns.index {
		out[rel] = string(ns.notes[id].Content)
	}
	return out
}

// Resolve converts a byte offset in a note into a 1-based line/column.
func (n *Note) Resolve(off int) LineCol {
	u, err := safecast.Conv[uint32](off)
	if err != nil {
		return LineCol{Line: 1, Col: 1}
	}
	return toLineCol(n.LineIdx, u)
}

// Line returns the 1-based line with the given number, without the trailing
// newline. Out-of-range numbers yield "".
func (n *Note) Line(num int) string {
	if num <= 0 {
		return ""
	}
	var start, end int
	switch {
	case num == 1:
		start = 0
	case num-2 < len(n.LineIdx):
		start = int(n.LineIdx[num-2]) + 1
	default:
		return ""
	}
	if num-1 < len(n.LineIdx) {
		end = int(n.LineIdx[num-1])
	} else {
		end = len(n.Content)
	}
	if start >= len(n.Content) {
		return ""
	}
	if end > len(n.Content) {
		end = len(n.Content)
	}
	return string(n.Content[start:end])
}

// FingerprintOf returns the note's cheap identity. Hash participates only
// when withHash is set.
func (n *Note) FingerprintOf(withHash bool) Fingerprint {
	fp := Fingerprint{Size: n.Size, ModTime: n.ModTime}
	if withHash {
		fp.Hash = n.Hash
		fp.HasHash = true
	}
	return fp
}

// Discover walks the vault root and returns the sorted vault-relative paths
// of every markdown note. Hidden directories (".obsidian", ".git", the cache
// dir itself) are skipped.
func Discover(root string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsMarkdown(name) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// StatFingerprint stats a note on disk and returns its current fingerprint
// without loading content. When withHash is set the content is read and
// hashed too.
func StatFingerprint(root, rel string, withHash bool) (Fingerprint, error) {
	abs := filepath.Join(root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return Fingerprint{}, err
	}
	fp := Fingerprint{Size: info.Size(), ModTime: info.ModTime().UnixNano()}
	if withHash {
		// #nosec G304 -- path comes from vault discovery
		content, err := os.ReadFile(abs)
		if err != nil {
			return Fingerprint{}, err
		}
		content, _ = removeBOM(content)
		content, _ = normalizeCRLF(content)
		fp.Hash = sha256.Sum256(content)
		fp.HasHash = true
	}
	return fp, nil
}
