package rules

import (
	"context"
	"fmt"
	"strings"

	"vaultlint/internal/lint"
	"vaultlint/internal/markdown"
)

// headingRule enforces heading structure. Both variants reject skipped
// levels (an H3 directly under an H1); the strict variant additionally
// requires exactly one H1 that matches the frontmatter title. Level
// skips are fixable by promoting the heading to the expected level.
type headingRule struct {
	id     lint.RuleID
	strict bool
}

func newHeadingRule(variant string) factory {
	return func(s Settings) Rule {
		return &headingRule{
			id:     lint.RuleID{Major: "heading-hierarchy", Minor: variant},
			strict: variant == variantStrict,
		}
	}
}

func (r *headingRule) ID() lint.RuleID { return r.id }

func (r *headingRule) Description() string {
	if r.strict {
		return "single H1 matching the title, no skipped heading levels"
	}
	return "no skipped heading levels"
}

func (r *headingRule) Lint(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error) {
	var issues []lint.Issue
	var changes []lint.FileChange

	if r.strict {
		issues = append(issues, r.checkH1(nc)...)
	}

	prev := 0
	for _, h := range nc.Doc.Headings {
		if prev > 0 && h.Level > prev+1 {
			want := prev + 1
			issues = append(issues, issueAt(r.id, lint.SeverityWarning, nc, h.Offset,
				fmt.Sprintf("heading level skips from H%d to H%d", prev, h.Level), true))
			changes = append(changes, lint.Edit(nc.Note.Rel, h.Offset,
				strings.Repeat("#", h.Level), strings.Repeat("#", want)))
			prev = want
			continue
		}
		prev = h.Level
	}

	var fixes []lint.Fix
	if len(changes) > 0 {
		fixes = append(fixes, lint.Fix{
			Rule:        r.id,
			Path:        nc.Note.Rel,
			Description: "promote headings to close level gaps",
			Changes:     changes,
		})
	}
	return issues, fixes, nil
}

func (r *headingRule) checkH1(nc *NoteContext) []lint.Issue {
	var h1s []markdown.Heading
	for _, h := range nc.Doc.Headings {
		if h.Level == 1 {
			h1s = append(h1s, h)
		}
	}

	switch {
	case len(h1s) == 0:
		return []lint.Issue{issueAt(r.id, lint.SeverityWarning, nc, -1,
			"note has no H1 heading", false)}
	case len(h1s) > 1:
		out := make([]lint.Issue, 0, len(h1s)-1)
		for _, h := range h1s[1:] {
			out = append(out, issueAt(r.id, lint.SeverityWarning, nc, h.Offset,
				"note has more than one H1 heading", false))
		}
		return out
	}

	if title := nc.Doc.Title(); title != "" && h1s[0].Text != title {
		return []lint.Issue{issueAt(r.id, lint.SeverityWarning, nc, h1s[0].Offset,
			fmt.Sprintf("H1 %q does not match frontmatter title %q", h1s[0].Text, title), false)}
	}
	return nil
}
