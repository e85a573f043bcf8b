package lintfmt

import (
	"fmt"
	"io"

	"vaultlint/internal/lint"
)

// Short renders one line per issue:
// path:line:col: severity: message [rule]
func Short(w io.Writer, res *lint.Result, opts Options) {
	issues := sortedIssues(res.Issues)
	if opts.MaxIssues > 0 && len(issues) > opts.MaxIssues {
		issues = issues[:opts.MaxIssues]
	}
	for _, is := range issues {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n",
			displayPath(opts, is.Path), is.Line, is.Col,
			is.Severity, is.Message, is.Rule)
	}
	for _, err := range res.Errors {
		fmt.Fprintf(w, "error: %s\n", err)
	}
}
