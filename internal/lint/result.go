package lint

import "time"

// Result aggregates one processing run.
type Result struct {
	FilesProcessed int
	IssuesFound    int
	FixesApplied   int
	Errors         []error
	Duration       time.Duration
	Issues         []Issue
}

// AddError records a non-fatal processing error.
func (r *Result) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err)
}

// Failed reports whether any processing error was recorded.
func (r *Result) Failed() bool {
	return len(r.Errors) > 0
}
