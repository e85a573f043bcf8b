package rules

import (
	"context"

	"github.com/bmatcuk/doublestar/v4"

	"vaultlint/internal/lint"
	"vaultlint/internal/markdown"
	"vaultlint/internal/vault"
)

// NoteContext is everything a rule may inspect for one note. Rules must
// treat all fields as read-only.
type NoteContext struct {
	Note      *vault.Note
	Doc       *markdown.Document
	VaultRoot string
	Notes     *vault.NoteSet
	Settings  Settings
}

// Rule is one named, versioned check. Lint reports issues and, for
// fixable rules, the fixes that resolve them. A fix may only be
// informed by issues the same rule found.
type Rule interface {
	ID() lint.RuleID
	Description() string
	Lint(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error)
}

// Settings carries a rule's [config] table from its TOML file.
type Settings map[string]any

// String returns the string value for key, or def.
func (s Settings) String(key, def string) string {
	if v, ok := s[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the bool value for key, or def.
func (s Settings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

// Int returns the integer value for key, or def. TOML integers decode
// as int64.
func (s Settings) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	}
	return def
}

// Strings returns the string-list value for key, or def.
func (s Settings) Strings(key string, def []string) []string {
	raw, ok := s[key].([]any)
	if !ok {
		return def
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if str, ok := item.(string); ok {
			out = append(out, str)
		}
	}
	return out
}

// ConfiguredRule binds a built-in rule to its profile configuration:
// severity override and include/exclude path patterns.
type ConfiguredRule struct {
	Rule     Rule
	Severity lint.Severity
	Include  []string
	Exclude  []string
}

// Applies reports whether the rule should run against a vault-relative
// slash path. Exclude wins over include; an empty include list means
// "every markdown note".
func (cr *ConfiguredRule) Applies(rel string) bool {
	for _, pat := range cr.Exclude {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return false
		}
	}
	if len(cr.Include) == 0 {
		return true
	}
	for _, pat := range cr.Include {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// Run executes the rule with the configured severity stamped onto every
// issue it reports.
func (cr *ConfiguredRule) Run(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error) {
	issues, fixes, err := cr.Rule.Lint(ctx, nc)
	for i := range issues {
		issues[i].Severity = cr.Severity
	}
	return issues, fixes, err
}

// issueAt builds an issue located at a byte offset in the note; a
// negative offset means "whole file" (line/col stay zero).
func issueAt(id lint.RuleID, sev lint.Severity, nc *NoteContext, offset int, msg string, fixable bool) lint.Issue {
	is := lint.Issue{
		Rule:     id,
		Severity: sev,
		Path:     nc.Note.Rel,
		Message:  msg,
		Fixable:  fixable,
	}
	if offset >= 0 {
		lc := nc.Note.Resolve(offset)
		is.Line = int(lc.Line)
		is.Col = int(lc.Col)
	}
	return is
}
