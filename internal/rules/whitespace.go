package rules

import (
	"context"

	"vaultlint/internal/lint"
)

// whitespaceRule flags trailing spaces and tabs on any line; the fix
// removes them, one edit per offending line.
type whitespaceRule struct {
	id lint.RuleID
}

func newWhitespaceRule(Settings) Rule {
	return &whitespaceRule{id: lint.RuleID{Major: "trailing-whitespace"}}
}

func (r *whitespaceRule) ID() lint.RuleID { return r.id }

func (r *whitespaceRule) Description() string {
	return "no trailing whitespace at line ends"
}

func (r *whitespaceRule) Lint(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error) {
	content := nc.Note.Content
	var issues []lint.Issue
	var changes []lint.FileChange

	lineEnd := func(end int) {
		ws := end
		for ws > 0 && (content[ws-1] == ' ' || content[ws-1] == '\t') {
			ws--
		}
		if ws == end {
			return
		}
		issues = append(issues, issueAt(r.id, lint.SeverityHint, nc, ws,
			"trailing whitespace", true))
		changes = append(changes, lint.Edit(nc.Note.Rel, ws, string(content[ws:end]), ""))
	}

	start := 0
	for i, b := range content {
		if b == '\n' {
			lineEnd(i)
			start = i + 1
		}
	}
	if start < len(content) {
		lineEnd(len(content))
	}

	var fixes []lint.Fix
	if len(changes) > 0 {
		fixes = append(fixes, lint.Fix{
			Rule:        r.id,
			Path:        nc.Note.Rel,
			Description: "strip trailing whitespace",
			Changes:     changes,
		})
	}
	return issues, fixes, nil
}
