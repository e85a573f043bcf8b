package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Writer performs vault mutations with atomic-write semantics. Writes to the
// same path are serialized by a per-path lock; distinct paths may be written
// concurrently.
type Writer struct {
	root string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewWriter creates a Writer rooted at the vault directory.
func NewWriter(root string) *Writer {
	return &Writer{
		root:  root,
		locks: make(map[string]*sync.Mutex),
	}
}

func (w *Writer) lockFor(rel string) *sync.Mutex {
	w.mu.Lock()
	defer w.mu.Unlock()
	l, ok := w.locks[rel]
	if !ok {
		l = &sync.Mutex{}
		w.locks[rel] = l
	}
	return l
}

func (w *Writer) abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// Write replaces the note at rel with content via temp-file + rename, so a
// crash never leaves a partially written note. The original file mode is
// preserved when the file exists.
func (w *Writer) Write(rel string, content []byte) error {
	l := w.lockFor(NormalizeRel(rel))
	l.Lock()
	defer l.Unlock()

	path := w.abs(rel)
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("vault: write %s: %w", rel, err)
	}
	f, err := os.CreateTemp(dir, ".vaultlint-*")
	if err != nil {
		return fmt.Errorf("vault: write %s: %w", rel, err)
	}
	tmp := f.Name()
	if _, err := f.Write(content); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("vault: write %s: %w", rel, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vault: write %s: %w", rel, err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vault: write %s: %w", rel, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("vault: write %s: %w", rel, err)
	}
	return nil
}

// Move renames a note inside the vault, creating target directories as
// needed. Both paths are locked for the duration (ordered to avoid
// deadlock with a concurrent inverse move).
func (w *Writer) Move(rel, newRel string) error {
	a, b := NormalizeRel(rel), NormalizeRel(newRel)
	if a == b {
		return nil
	}
	first, second := a, b
	if second < first {
		first, second = second, first
	}
	l1, l2 := w.lockFor(first), w.lockFor(second)
	l1.Lock()
	defer l1.Unlock()
	l2.Lock()
	defer l2.Unlock()

	dst := w.abs(b)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("vault: move %s: %w", rel, err)
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("vault: move %s: target %s already exists", rel, newRel)
	}
	if err := os.Rename(w.abs(a), dst); err != nil {
		return fmt.Errorf("vault: move %s: %w", rel, err)
	}
	return nil
}

// Delete removes a note from the vault. Missing files are not an error.
func (w *Writer) Delete(rel string) error {
	l := w.lockFor(NormalizeRel(rel))
	l.Lock()
	defer l.Unlock()

	err := os.Remove(w.abs(rel))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("vault: delete %s: %w", rel, err)
	}
	return nil
}
