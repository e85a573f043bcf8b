package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vaultlint/internal/config"
	"vaultlint/internal/rules"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Initialize a vault for linting",
	Long: `Initialize a vault by creating a vaultlint.toml and a default rule
profile under rules/default/enabled/. If [path] is omitted, the current
directory is used. Refuses to overwrite an existing vaultlint.toml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		target = args[0]
		if !filepath.IsAbs(target) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, target)
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	cfgPath := filepath.Join(target, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("vault already initialized: %s exists", cfgPath)
	}

	if err := os.WriteFile(cfgPath, []byte(defaultConfigTOML()), 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	enabledDir := filepath.Join(target, "rules", "default", "enabled")
	if err := os.MkdirAll(enabledDir, 0o755); err != nil {
		return fmt.Errorf("failed to create rules directory: %w", err)
	}

	var created []string
	for _, cr := range rules.Defaults() {
		id := cr.Rule.ID()
		name := id.Major + ".toml"
		path := filepath.Join(enabledDir, name)
		if err := os.WriteFile(path, []byte(ruleTOML(cr)), 0o600); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		created = append(created, filepath.Join("rules", "default", "enabled", name))
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, target); err2 == nil {
			rel = r
		}
	}
	fmt.Fprintf(os.Stdout, "Initialized vault in %s\n", rel)
	fmt.Fprintf(os.Stdout, "  - %s\n", config.FileName)
	for _, f := range created {
		fmt.Fprintf(os.Stdout, "  - %s\n", f)
	}
	return nil
}

func defaultConfigTOML() string {
	return `# vaultlint configuration
[general]
vault_root = "."
parallel = true
enable_cache = true
cache_dir = ".vaultlint"
enable_memory_management = true
max_memory_mb = 512
max_cache_entries = 10000

[profiles]
active = "default"

[profiles.default]
name = "default"
rules_path = "rules/default"
`
}

func ruleTOML(cr *rules.ConfiguredRule) string {
	id := cr.Rule.ID()
	return fmt.Sprintf(`[rule]
id = "%s"
name = "%s"
description = "%s"
severity = "%s"

[config]
`, id, id.Major, cr.Rule.Description(), cr.Severity)
}
