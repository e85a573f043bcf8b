package rules

import (
	"context"
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"vaultlint/internal/lint"
)

// frontmatterRule checks that required frontmatter keys are present and
// non-empty. The strict variant requires title+tags by default, the
// minimal variant only title. The fix inserts missing keys with
// defaults, appended before the closing delimiter so existing key order
// is preserved.
type frontmatterRule struct {
	id       lint.RuleID
	required []string
}

func newFrontmatterRule(variant string) factory {
	return func(s Settings) Rule {
		def := []string{"title", "tags"}
		if variant == variantMinimal {
			def = []string{"title"}
		}
		return &frontmatterRule{
			id:       lint.RuleID{Major: "frontmatter-required-fields", Minor: variant},
			required: s.Strings("required_fields", def),
		}
	}
}

func (r *frontmatterRule) ID() lint.RuleID { return r.id }

func (r *frontmatterRule) Description() string {
	return "required frontmatter fields are present and non-empty"
}

func (r *frontmatterRule) Lint(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error) {
	var missing []string
	for _, key := range r.required {
		if !hasValue(nc.Doc.Frontmatter, key) {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil, nil, nil
	}

	sev := lint.SeverityError
	issues := make([]lint.Issue, 0, len(missing))
	for _, key := range missing {
		issues = append(issues, issueAt(r.id, sev, nc, 0,
			fmt.Sprintf("missing required frontmatter field %q", key), true))
	}

	change, ok := r.insertChange(nc, missing)
	if !ok {
		for i := range issues {
			issues[i].Fixable = false
		}
		return issues, nil, nil
	}
	fix := lint.Fix{
		Rule:        r.id,
		Path:        nc.Note.Rel,
		Description: fmt.Sprintf("add missing frontmatter fields: %s", strings.Join(missing, ", ")),
		Changes:     []lint.FileChange{change},
	}
	return issues, []lint.Fix{fix}, nil
}

// insertChange builds the edit adding the missing keys. With existing
// frontmatter the keys go right before the closing delimiter; without,
// a whole new envelope is prepended.
func (r *frontmatterRule) insertChange(nc *NoteContext, missing []string) (lint.FileChange, bool) {
	block := r.renderFields(nc, missing)
	if block == "" {
		return lint.FileChange{}, false
	}

	content := string(nc.Note.Content)
	if nc.Doc.BodyOffset == 0 {
		return lint.Insert(nc.Note.Rel, 0, "---\n"+block+"---\n"), true
	}

	env := content[:nc.Doc.BodyOffset]
	closing := strings.LastIndex(env, "---")
	if closing <= 0 {
		return lint.FileChange{}, false
	}
	return lint.Insert(nc.Note.Rel, closing, block), true
}

// renderFields yaml-serializes each missing key separately, in required
// order, so output is deterministic (yaml.Marshal of a map is not).
func (r *frontmatterRule) renderFields(nc *NoteContext, missing []string) string {
	var sb strings.Builder
	for _, key := range missing {
		out, err := yaml.Marshal(map[string]any{key: r.defaultFor(nc, key)})
		if err != nil {
			return ""
		}
		sb.Write(out)
	}
	return sb.String()
}

func (r *frontmatterRule) defaultFor(nc *NoteContext, key string) any {
	switch key {
	case "title":
		base := path.Base(nc.Note.Rel)
		return strings.TrimSuffix(base, path.Ext(base))
	case "tags", "aliases":
		return []string{}
	}
	return ""
}

// hasValue reports whether fm carries a non-empty value for key. Empty
// strings and empty lists count as missing.
func hasValue(fm map[string]any, key string) bool {
	if fm == nil {
		return false
	}
	v, ok := fm[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	}
	return true
}
