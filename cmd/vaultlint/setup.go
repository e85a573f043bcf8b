package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vaultlint/internal/config"
	"vaultlint/internal/logging"
	"vaultlint/internal/rules"
)

// lintFlags are shared between the lint and fix commands.
type lintFlags struct {
	configPath  string
	profile     string
	jobs        int
	noCache     bool
	format      string
	rulesFilter string
	maxIssues   int
	fullpath    bool
	noColor     bool
	verbose     bool
	timings     bool
	ui          string
}

func addLintFlags(cmd *cobra.Command, f *lintFlags) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "path to vaultlint.toml (default: <vault>/vaultlint.toml)")
	cmd.Flags().StringVar(&f.profile, "profile", "", "rule profile to use")
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, "max parallel workers (0 = GOMAXPROCS)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().StringVar(&f.format, "format", "pretty", "output format (pretty|short|json)")
	cmd.Flags().StringVar(&f.rulesFilter, "rules", "", "comma-separated rule filter (major or major.minor)")
	cmd.Flags().IntVar(&f.maxIssues, "max-issues", 0, "truncate output after N issues (0 = all)")
	cmd.Flags().BoolVar(&f.fullpath, "fullpath", false, "print absolute paths")
	cmd.Flags().BoolVar(&f.noColor, "no-color", false, "disable colored output")
	cmd.Flags().BoolVar(&f.verbose, "verbose", false, "debug logging")
	cmd.Flags().BoolVar(&f.timings, "timings", false, "show phase timings")
	cmd.Flags().StringVar(&f.ui, "ui", "auto", "progress TUI (auto|on|off)")
}

// runSetup is everything a processing command needs, resolved from the
// config file plus CLI overrides.
type runSetup struct {
	root  string
	cfg   config.Config
	rules []*rules.ConfiguredRule
	log   *slog.Logger
}

func resolveVaultRoot(args []string) (string, error) {
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func setupRun(cmd *cobra.Command, args []string, f *lintFlags) (*runSetup, error) {
	root, err := resolveVaultRoot(args)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Resolve(root, f.configPath)
	if err != nil {
		return nil, err
	}

	ov := config.Overrides{}
	if cmd.Flags().Changed("profile") {
		ov.Profile = &f.profile
	}
	if cmd.Flags().Changed("jobs") {
		ov.Jobs = &f.jobs
	}
	if cmd.Flags().Changed("no-cache") {
		ov.NoCache = &f.noCache
	}
	if cmd.Flags().Changed("verbose") {
		ov.Verbose = &f.verbose
	}
	cfg.Apply(ov)

	crs, err := loadRules(&cfg)
	if err != nil {
		return nil, err
	}
	if f.rulesFilter != "" {
		crs = filterRules(crs, f.rulesFilter)
		if len(crs) == 0 {
			return nil, fmt.Errorf("--rules %q matches no configured rule", f.rulesFilter)
		}
	}

	return &runSetup{
		root:  root,
		cfg:   cfg,
		rules: crs,
		log:   logging.New(cfg.General.Verbose),
	}, nil
}

func loadRules(cfg *config.Config) ([]*rules.ConfiguredRule, error) {
	p, ok, err := cfg.Profile()
	if err != nil {
		return nil, err
	}
	if !ok {
		return rules.Defaults(), nil
	}
	return rules.Load(cfg.RulesDir(p))
}

// filterRules keeps rules whose Major or full id matches one of the
// comma-separated names.
func filterRules(crs []*rules.ConfiguredRule, filter string) []*rules.ConfiguredRule {
	wanted := make(map[string]bool)
	for _, name := range strings.Split(filter, ",") {
		if name = strings.TrimSpace(name); name != "" {
			wanted[name] = true
		}
	}
	var out []*rules.ConfiguredRule
	for _, cr := range crs {
		id := cr.Rule.ID()
		if wanted[id.String()] || wanted[id.Major] {
			out = append(out, cr)
		}
	}
	return out
}

func (s *runSetup) jobs() int {
	if !s.cfg.General.Parallel {
		return 1
	}
	return s.cfg.General.MaxConcurrency
}
