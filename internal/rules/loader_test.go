package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultlint/internal/lint"
)

func writeRuleFile(t *testing.T, dir, name, body string) {
	t.Helper()
	enabled := filepath.Join(dir, "enabled")
	if err := os.MkdirAll(enabled, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(enabled, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoadSortedByID(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "ws.toml", `
[rule]
id = "trailing-whitespace"
`)
	writeRuleFile(t, dir, "fm.toml", `
[rule]
id = "frontmatter-required-fields.strict"

[config]
required_fields = ["title"]
`)

	rules, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("rules = %d, want 2", len(rules))
	}
	if rules[0].Rule.ID().Major != "frontmatter-required-fields" {
		t.Fatalf("rules not sorted by id: first is %s", rules[0].Rule.ID())
	}
	if rules[1].Rule.ID().Major != "trailing-whitespace" {
		t.Fatalf("rules not sorted by id: second is %s", rules[1].Rule.ID())
	}
}

func TestLoadSeverityOverride(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "ws.toml", `
[rule]
id = "trailing-whitespace"
severity = "error"
`)

	rules, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rules[0].Severity != lint.SeverityError {
		t.Fatalf("severity = %s, want error", rules[0].Severity)
	}
}

func TestLoadDefaultSeverity(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "ws.toml", `
[rule]
id = "trailing-whitespace"
`)

	rules, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rules[0].Severity != lint.SeverityHint {
		t.Fatalf("severity = %s, want hint", rules[0].Severity)
	}
}

func TestLoadPatterns(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "fm.toml", `
[rule]
id = "frontmatter-required-fields.minimal"

[config]
include_patterns = ["notes/**"]
exclude_patterns = ["notes/archive/**"]
`)

	rules, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cr := rules[0]
	if !cr.Applies("notes/a.md") || cr.Applies("notes/archive/a.md") || cr.Applies("b.md") {
		t.Fatalf("patterns not honored: include=%v exclude=%v", cr.Include, cr.Exclude)
	}
}

func TestLoadRejectsMajorConflict(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "strict.toml", `
[rule]
id = "heading-hierarchy.strict"
`)
	writeRuleFile(t, dir, "flexible.toml", `
[rule]
id = "heading-hierarchy.flexible"
`)

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "heading-hierarchy") {
		t.Fatalf("want major conflict error, got %v", err)
	}
}

func TestLoadRejectsUnknownRule(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "x.toml", `
[rule]
id = "no-such-rule"
`)

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "no-such-rule") {
		t.Fatalf("want unknown rule error, got %v", err)
	}
}

func TestLoadRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "x.toml", `
[rule]
name = "anonymous"
`)

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "[rule].id") {
		t.Fatalf("want missing id error, got %v", err)
	}
}

func TestLoadMissingDirUsesDefaults(t *testing.T) {
	rules, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(rules) == 0 {
		t.Fatalf("want default rules")
	}
	seen := make(map[string]bool)
	for _, cr := range rules {
		major := cr.Rule.ID().Major
		if seen[major] {
			t.Fatalf("defaults enable two variants of %q", major)
		}
		seen[major] = true
	}
}

func TestDefaultsCoverEveryMajor(t *testing.T) {
	majors := make(map[string]bool)
	for _, id := range BuiltinIDs() {
		majors[id.Major] = true
	}
	got := make(map[string]bool)
	for _, cr := range Defaults() {
		got[cr.Rule.ID().Major] = true
	}
	if len(got) != len(majors) {
		t.Fatalf("defaults cover %d majors, builtins have %d", len(got), len(majors))
	}
}
