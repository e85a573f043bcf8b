package main

import (
	"github.com/spf13/cobra"
)

var (
	fixOpts   lintFlags
	fixDryRun bool
)

func init() {
	addLintFlags(fixCmd, &fixOpts)
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "stage and report fixes without writing anything")
}

var fixCmd = &cobra.Command{
	Use:   "fix [path]",
	Short: "Lint a vault and apply the fixable findings",
	Long: `fix runs the same checks as lint and then applies every fix whose file
still matches what was linted. Edits are atomic per file; renames update
the links that pointed at the old path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args, &fixOpts, true, fixDryRun)
	},
}
