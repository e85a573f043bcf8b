package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vaultlint/internal/engine"
	"vaultlint/internal/lint"
	"vaultlint/internal/observ"
)

var lintOpts lintFlags

func init() {
	addLintFlags(lintCmd, &lintOpts)
}

var lintCmd = &cobra.Command{
	Use:   "lint [path]",
	Short: "Check a vault against the configured rules",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProcess(cmd, args, &lintOpts, false, false)
	},
}

func runProcess(cmd *cobra.Command, args []string, f *lintFlags, fixMode, dryRun bool) error {
	setup, err := setupRun(cmd, args, f)
	if err != nil {
		return err
	}
	if f.noColor {
		color.NoColor = true
	}
	mode, err := readUIMode(f.ui)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	eopts := engine.Options{
		Concurrency:            setup.jobs(),
		EnableCache:            setup.cfg.General.EnableCache,
		CacheDir:               setup.cfg.AbsCacheDir(),
		MaxMemoryMB:            setup.cfg.General.MaxMemoryMB,
		MaxCacheEntries:        setup.cfg.General.MaxCacheEntries,
		HashContents:           setup.cfg.General.HashContents,
		EnableMemoryManagement: setup.cfg.General.EnableMemoryManagement,
		Logger:                 setup.log,
	}
	popts := engine.ProcessOptions{
		Fix:    fixMode,
		DryRun: dryRun || setup.cfg.General.DryRun,
		Rules:  setup.rules,
	}

	timer := observ.NewTimer()
	phase := timer.Begin("process")

	var (
		res   *lint.Result
		runID string
	)
	if shouldUseTUI(mode) && f.format == "pretty" {
		res, runID, err = runWithUI(ctx, setup, eopts, popts)
	} else {
		res, runID, err = runPlain(ctx, setup, eopts, popts)
	}
	if res != nil {
		phase.Done(fmt.Sprintf("%d files", res.FilesProcessed))
	} else {
		phase.Done("")
	}
	if err != nil {
		return err
	}

	if f.timings {
		fmt.Fprint(os.Stderr, timer.Summary())
	}
	return printResult(res, setup, f, runID, fixMode && popts.DryRun)
}

func runPlain(ctx context.Context, setup *runSetup, eopts engine.Options, popts engine.ProcessOptions) (*lint.Result, string, error) {
	eng, err := engine.New(eopts)
	if err != nil {
		return nil, "", err
	}
	res, perr := eng.ProcessVault(ctx, setup.root, popts)
	cerr := eng.Close()
	if perr == nil {
		perr = cerr
	}
	return res, eng.RunID(), perr
}
