package lint

import (
	"fmt"
	"sort"
)

// Report accumulates issues up to a fixed capacity.
type Report struct {
	items []Issue
	max   int
}

// NewReport creates a report that holds at most max issues.
// max <= 0 means unbounded.
func NewReport(max int) *Report {
	capHint := max
	if capHint <= 0 || capHint > 1024 {
		capHint = 64
	}
	return &Report{
		items: make([]Issue, 0, capHint),
		max:   max,
	}
}

// Add appends an issue, honoring the capacity.
// Returns false if the issue was not added (limit reached).
func (r *Report) Add(is Issue) bool {
	if r.max > 0 && len(r.items) >= r.max {
		return false
	}
	r.items = append(r.items, is)
	return true
}

// HasErrors reports whether at least one issue has Severity >= Error.
func (r *Report) HasErrors() bool {
	for i := range r.items {
		if r.items[i].Severity >= SeverityError {
			return true
		}
	}
	return false
}

// HasWarnings reports whether at least one issue has Severity >= Warning.
func (r *Report) HasWarnings() bool {
	for i := range r.items {
		if r.items[i].Severity >= SeverityWarning {
			return true
		}
	}
	return false
}

func (r *Report) Len() int {
	return len(r.items)
}

// Items returns a read-only view of the issues.
// Callers must not modify the returned slice.
func (r *Report) Items() []Issue {
	return r.items
}

// Merge appends all issues from another report, growing the limit
// if needed to fit everything.
func (r *Report) Merge(other *Report) {
	newTotal := len(r.items) + len(other.items)
	if r.max > 0 && newTotal > r.max {
		r.max = newTotal
	}
	r.items = append(r.items, other.items...)
}

// Sort orders issues by: path, line, col, severity (desc), rule (asc)
// for stable and deterministic output.
func (r *Report) Sort() {
	sort.SliceStable(r.items, func(i, j int) bool {
		a, b := r.items[i], r.items[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		return a.Rule.Less(b.Rule)
	})
}

// Dedup drops exact repeats keyed by rule, position and message.
func (r *Report) Dedup() {
	seen := make(map[string]bool, len(r.items))
	kept := make([]Issue, 0, len(r.items))
	for _, is := range r.items {
		key := fmt.Sprintf("%s:%s:%d:%d:%s", is.Rule, is.Path, is.Line, is.Col, is.Message)
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, is)
	}
	r.items = kept
}
