package cache

import (
	"container/list"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"vaultlint/internal/lint"
	"vaultlint/internal/vault"
)

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache: closed")

// Key identifies one cached outcome: a vault-relative path plus the rule
// that produced it.
type Key struct {
	Path string
	Rule lint.RuleID
}

func (k Key) String() string {
	return k.Path + "\x00" + k.Rule.String()
}

// Entry is the cached outcome of running one rule over one note.
// Cost is the approximate in-memory size in bytes, used for the memory
// budget; it is computed on Put.
type Entry struct {
	Fingerprint vault.Fingerprint
	Issues      []lint.Issue
	Fixes       []lint.Fix
	Duration    time.Duration
	CheckedAt   time.Time
	Cost        int64
}

// Options configures a Cache. Zero budgets mean unbounded. Dir == ""
// disables persistence (memory-only cache).
type Options struct {
	MaxMemoryMB  int
	MaxEntries   int
	Dir          string
	HashContents bool
	FlushEvery   int // puts between write-behind flushes; default 64
	Logger       *slog.Logger
}

// Stats is an O(1) snapshot of cache counters.
type Stats struct {
	Entries     int
	Hits        int64
	Misses      int64
	Evictions   int64
	MemoryBytes int64
	HitRate     float64
}

type node struct {
	key   Key
	entry Entry
}

// Cache holds per-(path, rule) lint outcomes with LRU eviction under an
// entry-count and memory budget, write-behind persistence, and
// at-most-one-in-flight computation per key.
//
// The map+list are guarded by mu; counters are atomics so Stats never
// contends with the processing hot path.
type Cache struct {
	opts Options
	log  *slog.Logger

	mu    sync.Mutex
	ll    *list.List // front = most recently used
	items map[Key]*list.Element
	mem   int64
	dirty int
	state int // 0 open, 1 closed

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	flight singleflight.Group

	flushCh chan struct{}
	done    chan struct{}
	wg      sync.WaitGroup
}

// New creates a Cache and loads the on-disk index when Dir is set. A
// missing, corrupt, or version-skewed index means a cold start, never an
// error: the only failure mode is an unusable cache directory.
func New(opts Options) (*Cache, error) {
	if opts.FlushEvery <= 0 {
		opts.FlushEvery = 64
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	c := &Cache{
		opts:    opts,
		log:     log,
		ll:      list.New(),
		items:   make(map[Key]*list.Element),
		flushCh: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	if opts.Dir != "" {
		if err := c.ensureDir(); err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
		c.loadIndex()
		c.wg.Add(1)
		go c.flusher()
	}
	return c, nil
}

// Get returns the entry for key iff it is present and its fingerprint
// still matches fp. A stale entry is dropped on access. Hits refresh LRU
// recency.
func (c *Cache) Get(key Key, fp vault.Fingerprint) (Entry, bool) {
	c.mu.Lock()
	elem, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)
		return Entry{}, false
	}
	n := elem.Value.(*node)
	if !n.entry.Fingerprint.Equal(fp) {
		c.removeLocked(elem)
		c.mu.Unlock()
		c.misses.Add(1)
		return Entry{}, false
	}
	c.ll.MoveToFront(elem)
	entry := n.entry
	c.mu.Unlock()
	c.hits.Add(1)
	return entry, true
}

// NeedsProcessing reports whether key must be (re)computed: true when the
// entry is absent or its fingerprint no longer matches. Does not touch
// recency or hit/miss counters.
func (c *Cache) NeedsProcessing(key Key, fp vault.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.items[key]
	if !ok {
		return true
	}
	return !elem.Value.(*node).entry.Fingerprint.Equal(fp)
}

// Put inserts or replaces the entry for key, then evicts least-recently
// used entries until both budgets hold again.
func (c *Cache) Put(key Key, entry Entry) {
	entry.Cost = costOf(key, &entry)
	if entry.CheckedAt.IsZero() {
		entry.CheckedAt = time.Now()
	}

	c.mu.Lock()
	if c.state != 0 {
		c.mu.Unlock()
		return
	}
	var kept *list.Element
	if elem, ok := c.items[key]; ok {
		n := elem.Value.(*node)
		c.mem -= n.entry.Cost
		n.entry = entry
		c.mem += entry.Cost
		c.ll.MoveToFront(elem)
		kept = elem
	} else {
		elem := c.ll.PushFront(&node{key: key, entry: entry})
		c.items[key] = elem
		c.mem += entry.Cost
		kept = elem
	}
	c.evictLocked(kept)
	c.dirty++
	flush := c.dirty >= c.opts.FlushEvery
	if flush {
		c.dirty = 0
	}
	c.mu.Unlock()

	if flush && c.opts.Dir != "" {
		select {
		case c.flushCh <- struct{}{}:
		default: // a flush is already pending
		}
	}
}

// Invalidate drops every entry for path, across all rules. Entries for
// other paths are untouched.
func (c *Cache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.items {
		if key.Path == path {
			c.removeLocked(elem)
		}
	}
}

// Do returns the cached entry for key when the fingerprint is still
// valid, otherwise runs compute exactly once even under concurrent
// callers for the same key (the others wait and share the result). The
// bool reports whether the value came from cache.
func (c *Cache) Do(key Key, fp vault.Fingerprint, compute func() (Entry, error)) (Entry, bool, error) {
	if entry, ok := c.Get(key, fp); ok {
		return entry, true, nil
	}
	v, err, _ := c.flight.Do(key.String(), func() (any, error) {
		// Double check: another caller may have just stored it.
		if entry, ok := c.Get(key, fp); ok {
			return entry, nil
		}
		entry, err := compute()
		if err != nil {
			return Entry{}, err
		}
		entry.Fingerprint = fp
		c.Put(key, entry)
		return entry, nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	return v.(Entry), false, nil
}

// Stats returns counters without touching the entry map locks beyond a
// short critical section for the size fields.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries := len(c.items)
	mem := c.mem
	c.mu.Unlock()

	s := Stats{
		Entries:     entries,
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Evictions:   c.evictions.Load(),
		MemoryBytes: mem,
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

// Close stops the write-behind flusher and performs a final flush.
// Idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.state != 0 {
		c.mu.Unlock()
		return nil
	}
	c.state = 1
	c.mu.Unlock()

	if c.opts.Dir != "" {
		close(c.done)
		c.wg.Wait()
		return c.Flush()
	}
	return nil
}

func (c *Cache) flusher() {
	defer c.wg.Done()
	for {
		select {
		case <-c.flushCh:
			if err := c.Flush(); err != nil {
				c.log.Debug("cache flush failed", "err", err)
			}
		case <-c.done:
			return
		}
	}
}

// evictLocked removes LRU entries until both budgets hold. Called with mu
// held. Ties on recency break by list order, i.e. insertion order. The
// keep element survives this pass even when over budget: an entry larger
// than the whole budget stays readable until the next Put evicts it.
func (c *Cache) evictLocked(keep *list.Element) {
	maxMem := int64(c.opts.MaxMemoryMB) * 1024 * 1024
	for {
		over := false
		if c.opts.MaxEntries > 0 && len(c.items) > c.opts.MaxEntries {
			over = true
		}
		if maxMem > 0 && c.mem > maxMem {
			over = true
		}
		if !over {
			return
		}
		back := c.ll.Back()
		if back == nil || back == keep {
			return
		}
		c.removeLocked(back)
		c.evictions.Add(1)
	}
}

func (c *Cache) removeLocked(elem *list.Element) {
	n := elem.Value.(*node)
	c.ll.Remove(elem)
	delete(c.items, n.key)
	c.mem -= n.entry.Cost
}

// costOf approximates the resident size of one entry in bytes.
func costOf(key Key, e *Entry) int64 {
	cost := int64(len(key.Path)+len(key.Rule.Major)+len(key.Rule.Minor)) + 160
	for i := range e.Issues {
		cost += int64(len(e.Issues[i].Message)+len(e.Issues[i].Path)) + 96
	}
	for i := range e.Fixes {
		f := &e.Fixes[i]
		cost += int64(len(f.Description)+len(f.Path)) + 96
		for j := range f.Changes {
			ch := &f.Changes[j]
			cost += int64(len(ch.OldText)+len(ch.NewText)+len(ch.Path)+len(ch.NewPath)) + 64
		}
	}
	return cost
}
