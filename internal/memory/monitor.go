package memory

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// Snapshot is one observation of process memory. Percentage is HeapUsed
// against the configured limit, clamped to [0, 100].
type Snapshot struct {
	HeapUsed   uint64
	HeapTotal  uint64
	Used       uint64 // total bytes obtained from the OS
	Total      uint64 // configured limit
	Percentage float64
	At         time.Time
}

// Level classifies memory pressure.
type Level uint8

const (
	LevelOK Level = iota
	LevelWarning
	LevelCritical
	LevelEmergency
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	}
	return "unknown"
}

// Thresholds are pressure boundaries as percent of the limit.
type Thresholds struct {
	Warning   float64
	Critical  float64
	Emergency float64
}

// DefaultThresholds returns the 70/85/95 boundaries.
func DefaultThresholds() Thresholds {
	return Thresholds{Warning: 70, Critical: 85, Emergency: 95}
}

// Options configures a Monitor. LimitMB <= 0 derives the limit from the
// runtime's soft memory limit when one is set, else falls back to 1 GiB.
type Options struct {
	LimitMB     int
	Thresholds  Thresholds
	Interval    time.Duration
	HistorySize int
	Logger      *slog.Logger
}

// trendMinSamples is the minimum history needed before Trend reports a
// nonzero slope.
const trendMinSamples = 3

// Monitor samples runtime memory on a timer, keeps a bounded history
// ring, and fires edge-triggered callbacks on level transitions.
type Monitor struct {
	limit      uint64
	thresholds Thresholds
	interval   time.Duration
	log        *slog.Logger

	mu        sync.Mutex
	cbMu      sync.Mutex // serializes callback invocations
	history   []Snapshot // ring, capacity fixed
	head      int
	full      bool
	lastLevel Level
	callbacks []func(old, new Level, s Snapshot)
	running   bool
	cancel    context.CancelFunc
	loopDone  chan struct{}

	// readStats is swappable in tests.
	readStats func() (heapUsed, heapTotal, sys uint64)
}

// New creates a Monitor; it does not start sampling until Start.
func New(opts Options) *Monitor {
	limit := uint64(opts.LimitMB) * 1024 * 1024
	if opts.LimitMB <= 0 {
		limit = deriveLimit()
	}
	th := opts.Thresholds
	if th.Warning == 0 && th.Critical == 0 && th.Emergency == 0 {
		th = DefaultThresholds()
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	size := opts.HistorySize
	if size <= 0 {
		size = 120
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Monitor{
		limit:      limit,
		thresholds: th,
		interval:   interval,
		log:        log,
		history:    make([]Snapshot, size),
		readStats:  readRuntimeStats,
	}
}

func deriveLimit() uint64 {
	// debug.SetMemoryLimit(-1) reads the current soft limit without
	// changing it; math.MaxInt64 means "no limit configured".
	if lim := debug.SetMemoryLimit(-1); lim > 0 && lim < int64(1)<<62 {
		return uint64(lim)
	}
	return 1 << 30
}

func readRuntimeStats() (uint64, uint64, uint64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc, ms.HeapSys, ms.Sys
}

// Snapshot takes an immediate sample, appends it to history, and runs any
// level-transition callbacks.
func (m *Monitor) Snapshot() Snapshot {
	heapUsed, heapTotal, sys := m.readStats()
	s := Snapshot{
		HeapUsed:  heapUsed,
		HeapTotal: heapTotal,
		Used:      sys,
		Total:     m.limit,
		At:        time.Now(),
	}
	if m.limit > 0 {
		s.Percentage = float64(heapUsed) / float64(m.limit) * 100
	}
	if s.Percentage > 100 {
		s.Percentage = 100
	}
	m.observe(s)
	return s
}

// observe records a snapshot and fires callbacks on level transitions.
// Callbacks run on the caller's goroutine; the transition is claimed
// under mu, and cbMu keeps invocations serialized even when the sampler
// and a Snapshot caller claim different transitions at the same time.
func (m *Monitor) observe(s Snapshot) {
	newLevel := m.Level(s)

	m.mu.Lock()
	m.history[m.head] = s
	m.head = (m.head + 1) % len(m.history)
	if m.head == 0 {
		m.full = true
	}
	old := m.lastLevel
	var cbs []func(old, new Level, s Snapshot)
	if newLevel != old {
		m.lastLevel = newLevel
		cbs = append(cbs, m.callbacks...)
	}
	m.mu.Unlock()

	if len(cbs) == 0 {
		return
	}
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	for _, cb := range cbs {
		cb(old, newLevel, s)
	}
}

// Level classifies a snapshot against the thresholds.
func (m *Monitor) Level(s Snapshot) Level {
	switch {
	case s.Percentage >= m.thresholds.Emergency:
		return LevelEmergency
	case s.Percentage >= m.thresholds.Critical:
		return LevelCritical
	case s.Percentage >= m.thresholds.Warning:
		return LevelWarning
	}
	return LevelOK
}

// IsSafe reports whether the current level is below Critical.
func (m *Monitor) IsSafe() bool {
	s := m.Snapshot()
	return m.Level(s) < LevelCritical
}

// OnLevelChange registers an edge-triggered callback: it fires once per
// level transition, never repeatedly while a level persists. Register
// before Start.
func (m *Monitor) OnLevelChange(fn func(old, new Level, s Snapshot)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Start launches the periodic sampler. Calling Start on a running
// monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	m.running = true
	ctx, m.cancel = context.WithCancel(ctx)
	m.loopDone = make(chan struct{})
	m.mu.Unlock()

	go m.loop(ctx)
}

func (m *Monitor) loop(ctx context.Context) {
	defer close(m.loopDone)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Snapshot()
		}
	}
}

// Stop halts the sampler and waits for the loop to exit. Idempotent.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.loopDone
	m.mu.Unlock()

	cancel()
	<-done
}

// History returns a copy of the recorded snapshots, oldest first.
func (m *Monitor) History() []Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.full {
		out := make([]Snapshot, m.head)
		copy(out, m.history[:m.head])
		return out
	}
	out := make([]Snapshot, len(m.history))
	copy(out, m.history[m.head:])
	copy(out[len(m.history)-m.head:], m.history[:m.head])
	return out
}

// Trend returns the least-squares slope of Percentage over the history
// window, in percentage points per minute. Fewer than trendMinSamples
// samples yield 0.
func (m *Monitor) Trend() float64 {
	hist := m.History()
	if len(hist) < trendMinSamples {
		return 0
	}

	t0 := hist[0].At
	var sumX, sumY, sumXY, sumXX float64
	for _, s := range hist {
		x := s.At.Sub(t0).Minutes()
		y := s.Percentage
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	n := float64(len(hist))
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// ForceGC runs a collection plus FreeOSMemory and returns the snapshots
// taken immediately before and after.
func (m *Monitor) ForceGC() (before, after Snapshot) {
	before = m.Snapshot()
	runtime.GC()
	debug.FreeOSMemory()
	after = m.Snapshot()
	return before, after
}
