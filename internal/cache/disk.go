package cache

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// Current schema version - increment when the index format changes.
// A version mismatch on load discards the whole index (cold start).
const indexSchemaVersion uint16 = 1

const indexFileName = "results.bin"

// diskIndex is the single on-disk artifact: every entry, oldest-first, so
// reloading rebuilds the same LRU order.
type diskIndex struct {
	Schema  uint16
	Entries []diskRecord
}

type diskRecord struct {
	Key   Key
	Entry Entry
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.opts.Dir, indexFileName)
}

func (c *Cache) ensureDir() error {
	return os.MkdirAll(c.opts.Dir, 0o755)
}

// loadIndex restores the in-memory state from disk. Any failure means a
// cold start; corruption is logged at debug and never surfaced.
func (c *Cache) loadIndex() {
	f, err := os.Open(c.indexPath())
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			c.log.Debug("cache index unreadable, starting cold", "err", err)
		}
		return
	}
	defer f.Close()

	var idx diskIndex
	if err := msgpack.NewDecoder(f).Decode(&idx); err != nil {
		c.log.Debug("cache index corrupt, starting cold", "err", err)
		return
	}
	if idx.Schema != indexSchemaVersion {
		c.log.Debug("cache index schema mismatch, starting cold",
			"have", idx.Schema, "want", indexSchemaVersion)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range idx.Entries {
		elem := c.ll.PushFront(&node{key: rec.Key, entry: rec.Entry})
		c.items[rec.Key] = elem
		c.mem += rec.Entry.Cost
	}
	c.evictLocked(nil)
}

// Flush serializes the full index to <dir>/results.bin via temp-file +
// rename, so readers never observe a partial write.
func (c *Cache) Flush() error {
	if c.opts.Dir == "" {
		return nil
	}

	c.mu.Lock()
	idx := diskIndex{
		Schema:  indexSchemaVersion,
		Entries: make([]diskRecord, 0, len(c.items)),
	}
	// Back-to-front: oldest first.
	for elem := c.ll.Back(); elem != nil; elem = elem.Prev() {
		n := elem.Value.(*node)
		idx.Entries = append(idx.Entries, diskRecord{Key: n.key, Entry: n.entry})
	}
	c.mu.Unlock()

	f, err := os.CreateTemp(c.opts.Dir, "tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if err := msgpack.NewEncoder(f).Encode(&idx); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, c.indexPath())
}
