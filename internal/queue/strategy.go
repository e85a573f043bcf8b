package queue

import (
	"fmt"

	"vaultlint/internal/memory"
)

// Decision is the batching strategy's verdict for the next dispatch
// cycle. Derived, never stored.
type Decision struct {
	BatchSize   int
	ReduceBatch bool
	Pause       bool
	Reason      string
}

// StrategyFunc maps the latest memory observation and the current batch
// size to a Decision.
type StrategyFunc func(s memory.Snapshot, lvl memory.Level, cur int) Decision

// MaxBatchSize caps recommended batch sizes regardless of free memory.
const MaxBatchSize = 512

// perItemOverheadBytes models the buffers held per in-flight note beyond
// its raw content (parsed document, staged issues).
const perItemOverheadBytes = 64 * 1024

// DefaultStrategy grows the batch while memory is OK, holds at warning,
// halves at critical, and pauses at emergency. Batch sizes are monotone
// non-increasing as pressure rises.
func DefaultStrategy(s memory.Snapshot, lvl memory.Level, cur int) Decision {
	if cur < 1 {
		cur = 1
	}
	switch lvl {
	case memory.LevelEmergency:
		return Decision{
			BatchSize:   1,
			ReduceBatch: true,
			Pause:       true,
			Reason:      fmt.Sprintf("heap %.0f%% >= emergency", s.Percentage),
		}
	case memory.LevelCritical:
		half := cur / 2
		if half < 1 {
			half = 1
		}
		return Decision{
			BatchSize:   half,
			ReduceBatch: true,
			Reason:      fmt.Sprintf("heap %.0f%% >= critical", s.Percentage),
		}
	case memory.LevelWarning:
		return Decision{
			BatchSize: cur,
			Reason:    fmt.Sprintf("heap %.0f%% >= warning, holding", s.Percentage),
		}
	default:
		grown := cur * 2
		if grown > MaxBatchSize {
			grown = MaxBatchSize
		}
		return Decision{BatchSize: grown, Reason: "memory ok"}
	}
}

// OptimalBatchSize fits a batch into a quarter of the free heap, clamped
// to [1, totalItems] and the hard cap.
func OptimalBatchSize(avgItemBytes int64, totalItems int, s memory.Snapshot) int {
	if totalItems <= 0 {
		return 0
	}
	free := int64(s.Total) - int64(s.HeapUsed)
	if free < 0 {
		free = 0
	}
	perItem := avgItemBytes + perItemOverheadBytes
	n := int((free / 4) / perItem)
	if n < 1 {
		n = 1
	}
	if n > totalItems {
		n = totalItems
	}
	if n > MaxBatchSize {
		n = MaxBatchSize
	}
	return n
}

// EstimateBytes sums the per-item overhead model over a batch.
func EstimateBytes(sizes []int64) int64 {
	var total int64
	for _, s := range sizes {
		total += s + perItemOverheadBytes
	}
	return total
}

// CanProcess reports whether a batch of the given sizes keeps projected
// usage within half of the free heap.
func CanProcess(sizes []int64, s memory.Snapshot) bool {
	free := int64(s.Total) - int64(s.HeapUsed)
	if free <= 0 {
		return false
	}
	return EstimateBytes(sizes) <= free/2
}
