package lintfmt

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"vaultlint/internal/lint"
)

func sampleResult() *lint.Result {
	return &lint.Result{
		FilesProcessed: 3,
		IssuesFound:    3,
		Duration:       1500 * time.Millisecond,
		Issues: []lint.Issue{
			{
				Rule:     lint.RuleID{Major: "trailing-whitespace"},
				Severity: lint.SeverityHint,
				Path:     "notes/b.md",
				Line:     2, Col: 6,
				Message: "trailing whitespace",
				Fixable: true,
			},
			{
				Rule:     lint.RuleID{Major: "heading-hierarchy", Minor: "strict"},
				Severity: lint.SeverityWarning,
				Path:     "notes/a.md",
				Line:     3, Col: 1,
				Message: "heading level skips from H1 to H3",
				Fixable: true,
			},
			{
				Rule:     lint.RuleID{Major: "frontmatter-required-fields", Minor: "strict"},
				Severity: lint.SeverityError,
				Path:     "notes/a.md",
				Line:     1, Col: 1,
				Message: `missing required frontmatter field "title"`,
				Fixable: true,
			},
		},
	}
}

func TestShortGolden(t *testing.T) {
	var sb strings.Builder
	Short(&sb, sampleResult(), Options{})

	want := `notes/a.md:1:1: error: missing required frontmatter field "title" [frontmatter-required-fields.strict]
notes/a.md:3:1: warning: heading level skips from H1 to H3 [heading-hierarchy.strict]
notes/b.md:2:6: hint: trailing whitespace [trailing-whitespace]
`
	if sb.String() != want {
		t.Fatalf("short output:\n%s\nwant:\n%s", sb.String(), want)
	}
}

func TestShortIncludesErrors(t *testing.T) {
	res := sampleResult()
	res.Errors = append(res.Errors, errors.New("load broken.md: permission denied"))

	var sb strings.Builder
	Short(&sb, res, Options{})
	if !strings.Contains(sb.String(), "error: load broken.md: permission denied") {
		t.Fatalf("missing error line:\n%s", sb.String())
	}
}

func TestPrettyGolden(t *testing.T) {
	lines := map[string]string{
		"notes/a.md:3": "### Deep",
	}
	var sb strings.Builder
	Pretty(&sb, sampleResult(), Options{
		Lines: func(path string, line int) string {
			return lines[path+":"+strconv.Itoa(line)]
		},
	})

	out := sb.String()
	if !strings.HasPrefix(out, "notes/a.md\n") {
		t.Fatalf("not grouped by file:\n%s", out)
	}
	for _, want := range []string{
		"1:1",
		"error",
		`missing required frontmatter field "title"`,
		"### Deep",
		"      ^",
		"notes/b.md",
		"3 issues (1 errors, 1 warnings) in 3 files",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("pretty output missing %q:\n%s", want, out)
		}
	}
}

func TestPrettyMaxIssues(t *testing.T) {
	var sb strings.Builder
	Pretty(&sb, sampleResult(), Options{MaxIssues: 1})
	if !strings.Contains(sb.String(), "... and 2 more issues") {
		t.Fatalf("truncation note missing:\n%s", sb.String())
	}
}

func TestPrettyTruncatesWide(t *testing.T) {
	got := truncate("0123456789", 8)
	if got != "01234..." {
		t.Fatalf("truncate = %q", got)
	}
	if truncate("short", 8) != "short" {
		t.Fatalf("short strings must pass through")
	}
}

func TestJSONGolden(t *testing.T) {
	res := sampleResult()
	res.FixesApplied = 1
	res.Errors = append(res.Errors, errors.New("boom"))

	var sb strings.Builder
	if err := JSON(&sb, res, Options{RunID: "run-1"}); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(sb.String()), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, sb.String())
	}
	for key, want := range map[string]float64{
		"filesProcessed": 3,
		"issuesFound":    3,
		"fixesApplied":   1,
		"durationMs":     1500,
	} {
		if got, ok := decoded[key].(float64); !ok || got != want {
			t.Fatalf("%s = %v, want %v", key, decoded[key], want)
		}
	}
	if decoded["runId"] != "run-1" {
		t.Fatalf("runId = %v", decoded["runId"])
	}
	issues, ok := decoded["issues"].([]any)
	if !ok || len(issues) != 3 {
		t.Fatalf("issues = %v", decoded["issues"])
	}
	first := issues[0].(map[string]any)
	if first["path"] != "notes/a.md" || first["severity"] != "error" {
		t.Fatalf("issues not sorted: %v", first)
	}
	errsList, ok := decoded["errors"].([]any)
	if !ok || len(errsList) != 1 || errsList[0] != "boom" {
		t.Fatalf("errors = %v", decoded["errors"])
	}
}
