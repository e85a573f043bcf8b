package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"vaultlint/internal/lint"
	"vaultlint/internal/rules"
)

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func readNote(t *testing.T, root, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("read %s: %v", rel, err)
	}
	return string(b)
}

func configured(t *testing.T, ids ...string) []*rules.ConfiguredRule {
	t.Helper()
	out := make([]*rules.ConfiguredRule, 0, len(ids))
	for _, s := range ids {
		id, err := lint.ParseRuleID(s)
		if err != nil {
			t.Fatalf("ParseRuleID(%q): %v", s, err)
		}
		r, sev, err := rules.NewBuiltin(id, nil)
		if err != nil {
			t.Fatalf("NewBuiltin(%q): %v", s, err)
		}
		out = append(out, &rules.ConfiguredRule{Rule: r, Severity: sev})
	}
	return out
}

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestProcessVaultFindsIssues(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "clean.md", "---\ntitle: Clean\ntags: [a]\n---\n# Clean\n")
	writeNote(t, root, "dirty.md", "---\ntitle: Dirty\ntags: [a]\n---\n# Dirty\n\nline with trailing  \n")

	e := newEngine(t, Options{Concurrency: 2})
	res, err := e.ProcessVault(t.Context(), root, ProcessOptions{
		Rules: configured(t, "frontmatter-required-fields.strict", "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res.FilesProcessed != 2 {
		t.Fatalf("FilesProcessed = %d, want 2", res.FilesProcessed)
	}
	if res.IssuesFound != 1 || len(res.Issues) != 1 {
		t.Fatalf("IssuesFound = %d (issues %d), want 1", res.IssuesFound, len(res.Issues))
	}
	if res.Issues[0].Path != "dirty.md" {
		t.Fatalf("issue path = %q, want dirty.md", res.Issues[0].Path)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
}

func TestProcessVaultSecondRunHitsCache(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "# A\n\nbody  \n")
	writeNote(t, root, "b.md", "# B\n")

	e := newEngine(t, Options{
		Concurrency: 2,
		EnableCache: true,
		CacheDir:    filepath.Join(root, ".vaultlint"),
	})
	popts := ProcessOptions{Rules: configured(t, "trailing-whitespace")}

	first, err := e.ProcessVault(t.Context(), root, popts)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := e.ProcessVault(t.Context(), root, popts)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.IssuesFound != second.IssuesFound {
		t.Fatalf("cached run changed the result: %d vs %d", first.IssuesFound, second.IssuesFound)
	}

	m := e.Metrics()
	if m.CacheHits < 2 {
		t.Fatalf("CacheHits = %d, want >= 2", m.CacheHits)
	}
	if m.RulesExecuted != 2 {
		t.Fatalf("RulesExecuted = %d, want 2 (second run fully cached)", m.RulesExecuted)
	}
}

func TestFixApplication(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "# A\n\nline one  \nline two\t\n")

	e := newEngine(t, Options{Concurrency: 1})
	res, err := e.ProcessVault(t.Context(), root, ProcessOptions{
		Fix:   true,
		Rules: configured(t, "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res.FixesApplied != 1 {
		t.Fatalf("FixesApplied = %d, want 1", res.FixesApplied)
	}
	got := readNote(t, root, "a.md")
	want := "# A\n\nline one\nline two\n"
	if got != want {
		t.Fatalf("fixed content:\n%q\nwant:\n%q", got, want)
	}
}

func TestFixDryRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	original := "# A\n\ntrailing  \n"
	writeNote(t, root, "a.md", original)

	e := newEngine(t, Options{Concurrency: 1})
	res, err := e.ProcessVault(t.Context(), root, ProcessOptions{
		Fix:    true,
		DryRun: true,
		Rules:  configured(t, "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res.FixesApplied != 1 {
		t.Fatalf("FixesApplied = %d, want 1 (counted, not written)", res.FixesApplied)
	}
	if got := readNote(t, root, "a.md"); got != original {
		t.Fatalf("dry run modified the file:\n%q", got)
	}
}

func TestFixMoveRewritesLinks(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "My Note.md", "# My Note\n")
	writeNote(t, root, "other.md", "see [[My Note]] for details\n")

	e := newEngine(t, Options{Concurrency: 1})
	res, err := e.ProcessVault(t.Context(), root, ProcessOptions{
		Fix:   true,
		Rules: configured(t, "naming-convention.kebab-case"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res.FixesApplied == 0 {
		t.Fatalf("no fixes applied")
	}

	if _, err := os.Stat(filepath.Join(root, "My Note.md")); !os.IsNotExist(err) {
		t.Fatalf("old file still present (stat err %v)", err)
	}
	if _, err := os.Stat(filepath.Join(root, "my-note.md")); err != nil {
		t.Fatalf("renamed file missing: %v", err)
	}
	got := readNote(t, root, "other.md")
	if !strings.Contains(got, "[[my-note]]") {
		t.Fatalf("link not rewritten: %q", got)
	}
}

func TestStageEditsRejectsConflicts(t *testing.T) {
	_, err := stageEdits("abcdef", []lint.FileChange{
		lint.Edit("x.md", 1, "bcd", "X"),
		lint.Edit("x.md", 2, "cde", "Y"),
	})
	if err == nil || !strings.Contains(err.Error(), "conflicting") {
		t.Fatalf("want conflict error, got %v", err)
	}
}

func TestStageEditsRejectsStaleGuard(t *testing.T) {
	_, err := stageEdits("abcdef", []lint.FileChange{
		lint.Edit("x.md", 0, "zzz", "X"),
	})
	if err == nil || !strings.Contains(err.Error(), "stale") {
		t.Fatalf("want stale guard error, got %v", err)
	}
}

func TestStageEditsDescendingApplication(t *testing.T) {
	got, err := stageEdits("one two three", []lint.FileChange{
		lint.Edit("x.md", 8, "three", "3"),
		lint.Edit("x.md", 0, "one", "1"),
		lint.Edit("x.md", 4, "two", "2"),
	})
	if err != nil {
		t.Fatalf("stageEdits: %v", err)
	}
	if got != "1 2 3" {
		t.Fatalf("got %q, want %q", got, "1 2 3")
	}
}

func TestRuleErrorDoesNotAbortOtherFiles(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "# A\n")
	writeNote(t, root, "b.md", "# B  \n")

	e := newEngine(t, Options{Concurrency: 2})
	res, err := e.ProcessFiles(t.Context(), root, []string{"a.md", "b.md", "missing.md"}, ProcessOptions{
		Rules: configured(t, "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessFiles: %v", err)
	}
	if res.FilesProcessed != 2 {
		t.Fatalf("FilesProcessed = %d, want 2", res.FilesProcessed)
	}
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %v, want exactly the load failure", res.Errors)
	}
	if res.IssuesFound != 1 {
		t.Fatalf("IssuesFound = %d, want 1", res.IssuesFound)
	}
}

func TestCloseIdempotentAndRejectsWork(t *testing.T) {
	root := t.TempDir()
	e, err := New(Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := e.ProcessVault(context.Background(), root, ProcessOptions{}); err != ErrEngineClosed {
		t.Fatalf("ProcessVault after Close = %v, want ErrEngineClosed", err)
	}
}

func TestMemoryManagedVaultRun(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"a.md", "b.md", "c.md", "d.md"} {
		writeNote(t, root, rel, "# "+rel+"\n\ncontent  \n")
	}

	e := newEngine(t, Options{Concurrency: 2, EnableMemoryManagement: true, MaxMemoryMB: 4096})
	res, err := e.ProcessVault(t.Context(), root, ProcessOptions{
		Rules: configured(t, "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res.FilesProcessed != 4 {
		t.Fatalf("FilesProcessed = %d, want 4", res.FilesProcessed)
	}
	if res.IssuesFound != 4 {
		t.Fatalf("IssuesFound = %d, want 4", res.IssuesFound)
	}
}

func hasCancelError(res *lint.Result) bool {
	for _, err := range res.Errors {
		if errors.Is(err, context.Canceled) {
			return true
		}
	}
	return false
}

func TestCancelledRunStillReturnsResult(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "# A\n")
	writeNote(t, root, "b.md", "# B\n")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	e := newEngine(t, Options{Concurrency: 2})
	res, err := e.ProcessVault(ctx, root, ProcessOptions{
		Rules: configured(t, "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res == nil {
		t.Fatal("cancelled run returned no result")
	}
	if !hasCancelError(res) {
		t.Fatalf("Errors = %v, want context.Canceled recorded", res.Errors)
	}
}

func TestCancelledMemoryManagedRunStillReturnsResult(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "a.md", "# A\n")

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	e := newEngine(t, Options{Concurrency: 1, EnableMemoryManagement: true, MaxMemoryMB: 4096})
	res, err := e.ProcessVault(ctx, root, ProcessOptions{
		Rules: configured(t, "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res == nil || !hasCancelError(res) {
		t.Fatalf("res = %+v, want a result with context.Canceled recorded", res)
	}
}

func TestCancelledFixRunWritesNothing(t *testing.T) {
	root := t.TempDir()
	content := "# A\n\ntrailing  \n"
	writeNote(t, root, "a.md", content)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	e := newEngine(t, Options{Concurrency: 1})
	res, err := e.ProcessVault(ctx, root, ProcessOptions{
		Fix:   true,
		Rules: configured(t, "trailing-whitespace"),
	})
	if err != nil {
		t.Fatalf("ProcessVault: %v", err)
	}
	if res.FixesApplied != 0 {
		t.Fatalf("FixesApplied = %d, want 0", res.FixesApplied)
	}
	if got := readNote(t, root, "a.md"); got != content {
		t.Fatalf("a.md was rewritten:\n%q", got)
	}
}
