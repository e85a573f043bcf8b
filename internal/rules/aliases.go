package rules

import (
	"context"
	"fmt"
	"path"
	"strings"

	"vaultlint/internal/lint"
)

// aliasRule flags frontmatter aliases that are listed more than once in
// a note, and aliases that shadow another note's basename. Shadowing an
// existing note makes [[alias]] links ambiguous in most vault tooling.
type aliasRule struct {
	id lint.RuleID
}

func newAliasRule(Settings) Rule {
	return &aliasRule{id: lint.RuleID{Major: "duplicate-aliases"}}
}

func (r *aliasRule) ID() lint.RuleID { return r.id }

func (r *aliasRule) Description() string {
	return "frontmatter aliases are unique and do not shadow note names"
}

func (r *aliasRule) Lint(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error) {
	aliases := nc.Doc.Aliases()
	if len(aliases) == 0 {
		return nil, nil, nil
	}

	var byBase map[string]string
	if nc.Notes != nil {
		byBase = make(map[string]string)
		for _, p := range nc.Notes.Paths() {
			if p == nc.Note.Rel {
				continue
			}
			byBase[strings.ToLower(strings.TrimSuffix(path.Base(p), path.Ext(p)))] = p
		}
	}

	var issues []lint.Issue
	seen := make(map[string]bool, len(aliases))
	for _, alias := range aliases {
		key := strings.ToLower(alias)
		if seen[key] {
			issues = append(issues, issueAt(r.id, lint.SeverityWarning, nc, -1,
				fmt.Sprintf("alias %q is listed more than once", alias), false))
			continue
		}
		seen[key] = true
		if other, ok := byBase[key]; ok {
			issues = append(issues, issueAt(r.id, lint.SeverityWarning, nc, -1,
				fmt.Sprintf("alias %q shadows note %q", alias, other), false))
		}
	}
	return issues, nil, nil
}
