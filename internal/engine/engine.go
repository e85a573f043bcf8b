package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"vaultlint/internal/cache"
	"vaultlint/internal/executor"
	"vaultlint/internal/links"
	"vaultlint/internal/lint"
	"vaultlint/internal/markdown"
	"vaultlint/internal/memory"
	"vaultlint/internal/queue"
	"vaultlint/internal/rules"
	"vaultlint/internal/vault"
)

// ErrEngineClosed is returned by processing calls after Close.
var ErrEngineClosed = errors.New("engine: closed")

// Options configures an Engine.
type Options struct {
	Concurrency            int
	EnableCache            bool
	CacheDir               string
	MaxMemoryMB            int
	MaxCacheEntries        int
	HashContents           bool
	EnableMemoryManagement bool
	Logger                 *slog.Logger
	Events                 EventSink
}

// ProcessOptions selects what a single run does. An empty Rules slice
// means every built-in at its default severity.
type ProcessOptions struct {
	Fix    bool
	DryRun bool
	Rules  []*rules.ConfiguredRule
}

// Metrics is an O(1) snapshot of engine counters, accumulated across
// runs.
type Metrics struct {
	FilesProcessed int64
	IssuesFound    int64
	FixesApplied   int64
	CacheHits      int64
	CacheMisses    int64
	RulesExecuted  int64
	Duration       time.Duration
	PeakHeapMB     float64
}

// Engine orchestrates vault scan, cached parallel rule execution, fix
// application, and link maintenance. It owns the lifecycle of its
// cache, monitor, and executor.
type Engine struct {
	opts  Options
	log   *slog.Logger
	runID string

	cache   *cache.Cache // nil when caching is disabled
	monitor *memory.Monitor
	exec    *executor.Executor
	parser  *markdown.Parser
	links   *links.Maintainer
	sink    EventSink

	closed atomic.Bool

	filesProcessed atomic.Int64
	issuesFound    atomic.Int64
	fixesApplied   atomic.Int64
	rulesExecuted  atomic.Int64
	durationNanos  atomic.Int64
	peakHeap       atomic.Uint64
}

// New creates an Engine. Close releases its resources.
func New(opts Options) (*Engine, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	runID := uuid.NewString()
	log = log.With("run_id", runID)

	e := &Engine{
		opts:    opts,
		log:     log,
		runID:   runID,
		monitor: memory.New(memory.Options{LimitMB: opts.MaxMemoryMB, Logger: log}),
		exec:    executor.New(executor.Options{Concurrency: opts.Concurrency, Logger: log}),
		parser:  markdown.NewParser(),
		links:   links.New(links.Options{Logger: log}),
		sink:    opts.Events,
	}
	if opts.EnableCache {
		c, err := cache.New(cache.Options{
			MaxMemoryMB:  opts.MaxMemoryMB,
			MaxEntries:   opts.MaxCacheEntries,
			Dir:          opts.CacheDir,
			HashContents: opts.HashContents,
			Logger:       log,
		})
		if err != nil {
			return nil, fmt.Errorf("engine: %w", err)
		}
		e.cache = c
	}
	if opts.EnableMemoryManagement {
		e.monitor.Start(context.Background())
	}
	return e, nil
}

// RunID returns the unique identifier of this engine instance, included
// in logs and JSON output.
func (e *Engine) RunID() string { return e.runID }

func (e *Engine) emit(evt Event) {
	if e.sink != nil {
		e.sink.Emit(evt)
	}
}

// fileOutcome collects what one note's rule pass produced.
type fileOutcome struct {
	path   string
	issues []lint.Issue
	fixes  []lint.Fix
	errs   []error
}

// ProcessFiles lints the given vault-relative paths. Rule errors on one
// file are recorded in Result.Errors and never abort other files.
// Cancellation ends the run early but still yields the partial result,
// with the context error recorded in Result.Errors.
func (e *Engine) ProcessFiles(ctx context.Context, vaultRoot string, paths []string, popts ProcessOptions) (*lint.Result, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	start := time.Now()
	res := &lint.Result{}
	crs := popts.Rules
	if len(crs) == 0 {
		crs = rules.Defaults()
	}

	ns, ids := e.scan(ctx, vaultRoot, paths, res)
	if err := ctx.Err(); err != nil {
		res.AddError(err)
		return e.finish(ctx, vaultRoot, ns, res, nil, popts, start)
	}

	tasks := make([]executor.Task[fileOutcome], len(ids))
	for i, id := range ids {
		note := ns.Get(id)
		tasks[i] = func(ctx context.Context) (fileOutcome, error) {
			return e.lintFile(ctx, ns, note, crs), nil
		}
	}
	results, err := executor.Execute(ctx, e.exec, tasks)
	outcomes := make([]fileOutcome, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			// task was never admitted; the run-level error covers it
			continue
		}
		outcomes = append(outcomes, r.Value)
	}
	if err != nil {
		if !isInterrupted(err) {
			return nil, fmt.Errorf("engine: %w", err)
		}
		res.AddError(err)
	}
	return e.finish(ctx, vaultRoot, ns, res, outcomes, popts, start)
}

// isInterrupted reports whether err is a cooperative shutdown rather
// than an engine failure.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, queue.ErrStopped)
}

// ProcessVault discovers every note under vaultRoot and lints it. With
// memory management enabled the files are dispatched through an
// adaptive queue that shrinks batches under pressure and pauses on
// emergency. Like ProcessFiles, cancellation and a stopped queue still
// yield the partial result.
func (e *Engine) ProcessVault(ctx context.Context, vaultRoot string, popts ProcessOptions) (*lint.Result, error) {
	if e.closed.Load() {
		return nil, ErrEngineClosed
	}
	paths, err := vault.Discover(vaultRoot)
	if err != nil {
		return nil, fmt.Errorf("engine: discover: %w", err)
	}
	if !e.opts.EnableMemoryManagement {
		return e.ProcessFiles(ctx, vaultRoot, paths, popts)
	}

	start := time.Now()
	res := &lint.Result{}
	crs := popts.Rules
	if len(crs) == 0 {
		crs = rules.Defaults()
	}

	ns, ids := e.scan(ctx, vaultRoot, paths, res)
	if err := ctx.Err(); err != nil {
		res.AddError(err)
		return e.finish(ctx, vaultRoot, ns, res, nil, popts, start)
	}

	sizes := make([]int64, len(ids))
	for i, id := range ids {
		sizes[i] = ns.Get(id).Size
	}
	batch := queue.OptimalBatchSize(avg(sizes), len(ids), e.monitor.Snapshot())

	var mu sync.Mutex
	outcomes := make([]fileOutcome, 0, len(ids))
	q := queue.New(ids, func(ctx context.Context, id vault.NoteID) error {
		out := e.lintFile(ctx, ns, ns.Get(id), crs)
		mu.Lock()
		outcomes = append(outcomes, out)
		mu.Unlock()
		return nil
	}, queue.Options{
		Concurrency: e.concurrency(),
		BatchSize:   batch,
		Monitor:     e.monitor,
		Strategy:    queue.DefaultStrategy,
		Logger:      e.log,
	})
	if err := q.Run(ctx); err != nil {
		if !isInterrupted(err) {
			return nil, fmt.Errorf("engine: %w", err)
		}
		res.AddError(err)
	}
	return e.finish(ctx, vaultRoot, ns, res, outcomes, popts, start)
}

// scan loads the notes in parallel (IO-bound) and registers them in a
// NoteSet sequentially. Unreadable notes are recorded in res.Errors and
// skipped.
func (e *Engine) scan(ctx context.Context, vaultRoot string, paths []string, res *lint.Result) (*vault.NoteSet, []vault.NoteID) {
	type loaded struct {
		content []byte
		flags   vault.NoteFlags
		size    int64
		modTime int64
		err     error
	}
	out := make([]loaded, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(e.concurrency(), max(len(paths), 1)))
	for i, rel := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				out[i].err = gctx.Err()
				return nil
			}
			e.emit(Event{Stage: StageScan, Status: StatusStart, Path: rel})
			content, flags, info, err := vault.ReadNote(vaultRoot, rel)
			if err != nil {
				out[i].err = err
				e.emit(Event{Stage: StageScan, Status: StatusError, Path: rel, Err: err})
				return nil
			}
			out[i] = loaded{content: content, flags: flags, size: info.Size(), modTime: info.ModTime().UnixNano()}
			e.emit(Event{Stage: StageScan, Status: StatusDone, Path: rel})
			return nil
		})
	}
	_ = g.Wait()

	ns := vault.NewNoteSet(vaultRoot)
	ids := make([]vault.NoteID, 0, len(paths))
	for i, rel := range paths {
		if out[i].err != nil {
			// files a cancellation skipped are covered by the
			// run-level error, not reported one by one
			if !errors.Is(out[i].err, context.Canceled) && !errors.Is(out[i].err, context.DeadlineExceeded) {
				res.AddError(fmt.Errorf("load %s: %w", rel, out[i].err))
			}
			continue
		}
		id := ns.Add(rel, out[i].content, out[i].flags)
		ns.SetStat(id, out[i].size, out[i].modTime)
		ids = append(ids, id)
	}
	return ns, ids
}

// lintFile runs every applicable rule over one note, consulting the
// cache per (path, rule). Rules for one file run sequentially in the
// file's task.
func (e *Engine) lintFile(ctx context.Context, ns *vault.NoteSet, note *vault.Note, crs []*rules.ConfiguredRule) fileOutcome {
	out := fileOutcome{path: note.Rel}
	e.emit(Event{Stage: StageLint, Status: StatusStart, Path: note.Rel})

	fp := note.FingerprintOf(e.opts.HashContents)
	var doc *markdown.Document

	for _, cr := range crs {
		// remaining rules are abandoned; the run-level error reports it
		if ctx.Err() != nil {
			break
		}
		if !cr.Applies(note.Rel) {
			continue
		}
		id := cr.Rule.ID()
		compute := func() (cache.Entry, error) {
			if doc == nil {
				doc = e.parser.Parse(note.Content)
			}
			nc := &rules.NoteContext{Note: note, Doc: doc, VaultRoot: ns.Root(), Notes: ns}
			ruleStart := time.Now()
			issues, fixes, err := cr.Run(ctx, nc)
			if err != nil {
				return cache.Entry{}, err
			}
			e.rulesExecuted.Add(1)
			return cache.Entry{Issues: issues, Fixes: fixes, Duration: time.Since(ruleStart)}, nil
		}

		var (
			entry cache.Entry
			hit   bool
			err   error
		)
		if e.cache != nil {
			entry, hit, err = e.cache.Do(cache.Key{Path: note.Rel, Rule: id}, fp, compute)
		} else {
			entry, err = compute()
		}
		if err != nil {
			out.errs = append(out.errs, fmt.Errorf("%s: rule %s: %w", note.Rel, id, err))
			e.emit(Event{Stage: StageLint, Status: StatusError, Path: note.Rel, Detail: id.String(), Err: err})
			continue
		}
		if hit {
			e.emit(Event{Stage: StageLint, Status: StatusSkip, Path: note.Rel, Detail: id.String()})
		}
		for _, is := range entry.Issues {
			// the cached severity may predate a profile change
			is.Severity = cr.Severity
			out.issues = append(out.issues, is)
		}
		out.fixes = append(out.fixes, entry.Fixes...)
	}

	e.emit(Event{Stage: StageLint, Status: StatusDone, Path: note.Rel})
	return out
}

// finish aggregates per-file outcomes into the result and applies fixes
// when requested.
func (e *Engine) finish(ctx context.Context, vaultRoot string, ns *vault.NoteSet, res *lint.Result, outcomes []fileOutcome, popts ProcessOptions, start time.Time) (*lint.Result, error) {
	var fixes []lint.Fix
	report := lint.NewReport(0)
	for _, out := range outcomes {
		for _, is := range out.issues {
			report.Add(is)
		}
		fixes = append(fixes, out.fixes...)
		for _, err := range out.errs {
			res.AddError(err)
		}
	}
	report.Dedup()
	report.Sort()
	res.Issues = report.Items()
	res.FilesProcessed = len(outcomes)
	res.IssuesFound = len(res.Issues)

	// never write fixes once the run is interrupted
	if popts.Fix && len(fixes) > 0 && ctx.Err() == nil {
		e.applyFixes(ctx, vaultRoot, ns, fixes, popts.DryRun, res)
	}

	e.filesProcessed.Add(int64(res.FilesProcessed))
	e.issuesFound.Add(int64(res.IssuesFound))
	e.fixesApplied.Add(int64(res.FixesApplied))
	e.samplePeak()

	res.Duration = time.Since(start)
	e.durationNanos.Add(int64(res.Duration))
	e.log.Info("run finished",
		"files", res.FilesProcessed,
		"issues", res.IssuesFound,
		"fixes_applied", res.FixesApplied,
		"errors", len(res.Errors),
		"duration", res.Duration)
	return res, nil
}

// Metrics returns accumulated counters. Never blocks processing.
func (e *Engine) Metrics() Metrics {
	m := Metrics{
		FilesProcessed: e.filesProcessed.Load(),
		IssuesFound:    e.issuesFound.Load(),
		FixesApplied:   e.fixesApplied.Load(),
		RulesExecuted:  e.rulesExecuted.Load(),
		Duration:       time.Duration(e.durationNanos.Load()),
		PeakHeapMB:     float64(e.peakHeap.Load()) / (1 << 20),
	}
	if e.cache != nil {
		st := e.cache.Stats()
		m.CacheHits = st.Hits
		m.CacheMisses = st.Misses
	}
	return m
}

// Close flushes the cache and stops the monitor. Idempotent.
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	e.monitor.Stop()
	e.exec.Close()
	if e.cache != nil {
		e.emit(Event{Stage: StageFlush, Status: StatusStart})
		if err := e.cache.Close(); err != nil {
			e.emit(Event{Stage: StageFlush, Status: StatusError, Err: err})
			return fmt.Errorf("engine: %w", err)
		}
		e.emit(Event{Stage: StageFlush, Status: StatusDone})
	}
	return nil
}

func (e *Engine) concurrency() int {
	if e.opts.Concurrency > 0 {
		return e.opts.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

// samplePeak records the high-water heap mark across runs.
func (e *Engine) samplePeak() {
	used := e.monitor.Snapshot().HeapUsed
	for {
		cur := e.peakHeap.Load()
		if used <= cur || e.peakHeap.CompareAndSwap(cur, used) {
			return
		}
	}
}

func avg(sizes []int64) int64 {
	if len(sizes) == 0 {
		return 0
	}
	var total int64
	for _, s := range sizes {
		total += s
	}
	return total / int64(len(sizes))
}
