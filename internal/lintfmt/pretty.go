package lintfmt

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"vaultlint/internal/lint"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow)
	infoColor  = color.New(color.FgCyan)
	hintColor  = color.New(color.Faint)
	fileColor  = color.New(color.Bold)
	ruleColor  = color.New(color.Faint)
)

// Pretty renders issues grouped by file with a line excerpt and caret
// under each position. Issues are sorted by path, line, col, rule.
func Pretty(w io.Writer, res *lint.Result, opts Options) {
	issues := sortedIssues(res.Issues)
	if opts.MaxIssues > 0 && len(issues) > opts.MaxIssues {
		issues = issues[:opts.MaxIssues]
	}

	shown := 0
	var lastPath string
	for _, is := range issues {
		if is.Path != lastPath {
			if lastPath != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, paint(opts, fileColor, displayPath(opts, is.Path)))
			lastPath = is.Path
		}

		loc := fmt.Sprintf("%d:%d", is.Line, is.Col)
		if is.Line == 0 {
			loc = "-"
		}
		line := fmt.Sprintf("  %-7s %-8s %s %s",
			loc,
			paint(opts, severityColor(is.Severity), is.Severity.String()),
			is.Message,
			paint(opts, ruleColor, "["+is.Rule.String()+"]"))
		fmt.Fprintln(w, truncate(line, opts.Width))

		if is.Line > 0 && opts.Lines != nil {
			if excerpt := opts.Lines(is.Path, is.Line); excerpt != "" {
				fmt.Fprintf(w, "      %s\n", truncate(excerpt, opts.Width))
				if is.Col > 0 {
					fmt.Fprintf(w, "      %s^\n", strings.Repeat(" ", caretPad(excerpt, is.Col)))
				}
			}
		}
		shown++
	}

	if shown < len(res.Issues) {
		fmt.Fprintf(w, "\n... and %d more issues\n", len(res.Issues)-shown)
	}
	if shown > 0 {
		fmt.Fprintln(w)
	}
	writeSummary(w, res, opts)
}

func writeSummary(w io.Writer, res *lint.Result, opts Options) {
	var errs, warns int
	for _, is := range res.Issues {
		switch is.Severity {
		case lint.SeverityError:
			errs++
		case lint.SeverityWarning:
			warns++
		}
	}
	summary := fmt.Sprintf("%d issues (%d errors, %d warnings) in %d files",
		len(res.Issues), errs, warns, res.FilesProcessed)
	if res.FixesApplied > 0 {
		summary += fmt.Sprintf(", %d files fixed", res.FixesApplied)
	}
	fmt.Fprintln(w, summary)
	for _, err := range res.Errors {
		fmt.Fprintln(w, paint(opts, errorColor, "error: ")+err.Error())
	}
}

func sortedIssues(issues []lint.Issue) []lint.Issue {
	out := make([]lint.Issue, len(issues))
	copy(out, issues)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Col != b.Col {
			return a.Col < b.Col
		}
		return a.Rule.String() < b.Rule.String()
	})
	return out
}

func displayPath(opts Options, rel string) string {
	if opts.FullPath && opts.VaultRoot != "" {
		return filepath.Join(opts.VaultRoot, filepath.FromSlash(rel))
	}
	return rel
}

func severityColor(sev lint.Severity) *color.Color {
	switch sev {
	case lint.SeverityError:
		return errorColor
	case lint.SeverityWarning:
		return warnColor
	case lint.SeverityInfo:
		return infoColor
	}
	return hintColor
}

func paint(opts Options, c *color.Color, s string) string {
	if !opts.Color {
		return s
	}
	return c.Sprint(s)
}

// caretPad converts a 1-based byte column into a display width so the
// caret lines up under tabs and wide runes.
func caretPad(line string, col int) int {
	if col <= 1 {
		return 0
	}
	if col-1 > len(line) {
		return runewidth.StringWidth(line)
	}
	return runewidth.StringWidth(line[:col-1])
}

func truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	if width <= 3 {
		return runewidth.Truncate(s, width, "")
	}
	return runewidth.Truncate(s, width-3, "...")
}
