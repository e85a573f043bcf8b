package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"vaultlint/internal/version"
)

// errIssuesFound signals exit code 1: the vault has error-severity
// issues (or processing errors). Engine failures exit 2.
var errIssuesFound = errors.New("issues found")

var rootCmd = &cobra.Command{
	Use:   "vaultlint",
	Short: "Incremental lint engine for Markdown vaults",
	Long:  `vaultlint checks an Obsidian-style Markdown vault against configurable rules, caches clean results, and can apply fixes with link maintenance.`,
}

func main() {
	rootCmd.Version = version.Version
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, errIssuesFound) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(2)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func termSize(f *os.File) (int, int, error) {
	return term.GetSize(int(f.Fd()))
}
