package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vaultlint/internal/lint"
	"vaultlint/internal/lintfmt"
)

func printResult(res *lint.Result, setup *runSetup, f *lintFlags, runID string, dryRun bool) error {
	width := 0
	if isTerminal(os.Stdout) {
		if w, _, err := termSize(os.Stdout); err == nil {
			width = w
		}
	}
	opts := lintfmt.Options{
		Color:     !f.noColor && isTerminal(os.Stdout),
		FullPath:  f.fullpath,
		VaultRoot: setup.root,
		Width:     width,
		MaxIssues: f.maxIssues,
		Lines:     lineLookup(setup.root),
		RunID:     runID,
	}

	switch f.format {
	case "pretty":
		if dryRun {
			fmt.Fprintln(os.Stdout, "dry run: no files were written")
		}
		lintfmt.Pretty(os.Stdout, res, opts)
	case "short":
		lintfmt.Short(os.Stdout, res, opts)
	case "json":
		if err := lintfmt.JSON(os.Stdout, res, opts); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q (expected pretty|short|json)", f.format)
	}

	if hasFailures(res) {
		return errIssuesFound
	}
	return nil
}

func hasFailures(res *lint.Result) bool {
	if len(res.Errors) > 0 {
		return true
	}
	for _, is := range res.Issues {
		if is.Severity == lint.SeverityError {
			return true
		}
	}
	return false
}

// lineLookup reads note lines lazily for pretty excerpts, caching each
// file after the first hit.
func lineLookup(root string) lintfmt.LineFunc {
	files := make(map[string][]string)
	return func(path string, line int) string {
		lines, ok := files[path]
		if !ok {
			content, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(path)))
			if err != nil {
				files[path] = nil
				return ""
			}
			lines = strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
			files[path] = lines
		}
		if line < 1 || line > len(lines) {
			return ""
		}
		return lines[line-1]
	}
}
