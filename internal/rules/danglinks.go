package rules

import (
	"context"
	"fmt"
	"path"
	"strings"

	"vaultlint/internal/lint"
	"vaultlint/internal/links"
)

// danglingRule flags wikilinks and markdown links whose target resolves
// to no note in the vault. External URLs and non-markdown attachments
// are exempt. Not fixable: removing references is a policy call the
// user makes, not the linter.
type danglingRule struct {
	id lint.RuleID
}

func newDanglingRule(Settings) Rule {
	return &danglingRule{id: lint.RuleID{Major: "dangling-links"}}
}

func (r *danglingRule) ID() lint.RuleID { return r.id }

func (r *danglingRule) Description() string {
	return "internal links resolve to an existing note"
}

func (r *danglingRule) Lint(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error) {
	if nc.Notes == nil {
		return nil, nil, nil
	}

	// basename index for Obsidian-style [[Note]] resolution
	byBase := make(map[string]bool)
	paths := make(map[string]bool)
	for _, p := range nc.Notes.Paths() {
		paths[p] = true
		byBase[strings.ToLower(strings.TrimSuffix(path.Base(p), path.Ext(p)))] = true
	}

	srcDir := path.Dir(nc.Note.Rel)
	var issues []lint.Issue
	for _, l := range links.Scan(string(nc.Note.Content)) {
		if l.Target == "" || links.IsExternal(l.Target) {
			continue
		}
		if ext := path.Ext(l.Target); ext != "" && !strings.EqualFold(ext, ".md") {
			continue // attachment, not a note
		}
		if resolves(l, srcDir, paths, byBase) {
			continue
		}
		issues = append(issues, issueAt(r.id, lint.SeverityWarning, nc, l.Offset,
			fmt.Sprintf("link target %q does not resolve to a note", l.Target), false))
	}
	return issues, nil, nil
}

func resolves(l links.Link, srcDir string, paths, byBase map[string]bool) bool {
	t := path.Clean(strings.TrimSpace(l.Target))

	candidates := []string{t, t + ".md", path.Clean(path.Join(srcDir, t)), path.Clean(path.Join(srcDir, t)) + ".md"}
	for _, cand := range candidates {
		if paths[cand] {
			return true
		}
	}
	if l.Kind == links.KindWiki && !strings.Contains(t, "/") {
		return byBase[strings.ToLower(strings.TrimSuffix(t, path.Ext(t)))]
	}
	return false
}
