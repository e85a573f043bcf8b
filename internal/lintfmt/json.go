package lintfmt

import (
	"encoding/json"
	"io"

	"vaultlint/internal/lint"
)

// IssueJSON is one issue in JSON output.
type IssueJSON struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Path     string `json:"path"`
	Line     int    `json:"line,omitempty"`
	Col      int    `json:"col,omitempty"`
	Message  string `json:"message"`
	Fixable  bool   `json:"fixable,omitempty"`
}

// ResultJSON is the root of JSON output. Key names match the original
// tool so downstream consumers keep working.
type ResultJSON struct {
	RunID          string      `json:"runId,omitempty"`
	FilesProcessed int         `json:"filesProcessed"`
	IssuesFound    int         `json:"issuesFound"`
	FixesApplied   int         `json:"fixesApplied"`
	Errors         []string    `json:"errors"`
	DurationMs     int64       `json:"durationMs"`
	Issues         []IssueJSON `json:"issues"`
}

// JSON renders the result as a single indented JSON document.
func JSON(w io.Writer, res *lint.Result, opts Options) error {
	out := ResultJSON{
		RunID:          opts.RunID,
		FilesProcessed: res.FilesProcessed,
		IssuesFound:    res.IssuesFound,
		FixesApplied:   res.FixesApplied,
		Errors:         make([]string, 0, len(res.Errors)),
		DurationMs:     res.Duration.Milliseconds(),
		Issues:         make([]IssueJSON, 0, len(res.Issues)),
	}
	for _, err := range res.Errors {
		out.Errors = append(out.Errors, err.Error())
	}
	for _, is := range sortedIssues(res.Issues) {
		out.Issues = append(out.Issues, IssueJSON{
			Rule:     is.Rule.String(),
			Severity: is.Severity.String(),
			Path:     displayPath(opts, is.Path),
			Line:     is.Line,
			Col:      is.Col,
			Message:  is.Message,
			Fixable:  is.Fixable,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
