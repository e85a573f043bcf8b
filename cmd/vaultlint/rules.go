package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"vaultlint/internal/rules"
)

var rulesOpts lintFlags

func init() {
	rulesCmd.Flags().StringVar(&rulesOpts.configPath, "config", "", "path to vaultlint.toml")
	rulesCmd.Flags().StringVar(&rulesOpts.profile, "profile", "", "rule profile to use")
}

var rulesCmd = &cobra.Command{
	Use:   "rules [path]",
	Short: "List the rules resolved for the active profile",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setup, err := setupRun(cmd, args, &rulesOpts)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RULE\tSEVERITY\tFIXABLE\tDESCRIPTION")
		for _, cr := range setup.rules {
			id := cr.Rule.ID()
			fixable := "no"
			if rules.Fixable(id) {
				fixable = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", id, cr.Severity, fixable, cr.Rule.Description())
		}
		return tw.Flush()
	},
}
