package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// ErrNoProfile is returned when the active profile is not defined.
var ErrNoProfile = errors.New("config: active profile not defined")

// FileName is the config file the tool looks for in the vault root.
const FileName = "vaultlint.toml"

// General mirrors the [general] table of vaultlint.toml.
type General struct {
	VaultRoot              string `toml:"vault_root"`
	DryRun                 bool   `toml:"dry_run"`
	Verbose                bool   `toml:"verbose"`
	Fix                    bool   `toml:"fix"`
	Parallel               bool   `toml:"parallel"`
	MaxConcurrency         int    `toml:"max_concurrency"`
	EnableCache            bool   `toml:"enable_cache"`
	CacheDir               string `toml:"cache_dir"`
	EnableMemoryManagement bool   `toml:"enable_memory_management"`
	MaxMemoryMB            int    `toml:"max_memory_mb"`
	MaxCacheEntries        int    `toml:"max_cache_entries"`
	HashContents           bool   `toml:"hash_contents"`
}

// Profile is one named rule profile.
type Profile struct {
	Name      string `toml:"name"`
	RulesPath string `toml:"rules_path"`
}

// Config is the resolved configuration: file values with defaults
// filled in, before CLI overrides.
type Config struct {
	General  General
	Profiles map[string]Profile
	Active   string

	// Dir is the directory the config file was loaded from; relative
	// paths (cache_dir, rules_path) resolve against it. Empty for the
	// built-in defaults.
	Dir string
}

// Default returns the configuration used when no vaultlint.toml exists:
// everything on, all built-in rules at default severities.
func Default() Config {
	return Config{
		General: General{
			VaultRoot:              ".",
			Parallel:               true,
			EnableCache:            true,
			CacheDir:               ".vaultlint",
			EnableMemoryManagement: true,
			MaxMemoryMB:            512,
			MaxCacheEntries:        10000,
		},
		Profiles: map[string]Profile{},
	}
}

// Load parses a vaultlint.toml. Unknown keys are rejected so typos do
// not silently disable options. Missing [general] keys keep their
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	cfg.Dir = filepath.Dir(path)

	var raw struct {
		General  General                   `toml:"general"`
		Profiles map[string]toml.Primitive `toml:"profiles"`
	}
	raw.General = cfg.General

	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	cfg.General = raw.General
	for name, prim := range raw.Profiles {
		if name == "active" {
			if err := meta.PrimitiveDecode(prim, &cfg.Active); err != nil {
				return Config{}, fmt.Errorf("%s: [profiles].active: %w", path, err)
			}
			continue
		}
		var p Profile
		if err := meta.PrimitiveDecode(prim, &p); err != nil {
			return Config{}, fmt.Errorf("%s: [profiles.%s]: %w", path, name, err)
		}
		cfg.Profiles[name] = p
	}

	// after PrimitiveDecode so profile keys are accounted for
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.validate(path); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve locates and loads the config for a vault root. Missing file
// yields the defaults with the root filled in.
func Resolve(vaultRoot, explicitPath string) (Config, error) {
	path := explicitPath
	if path == "" {
		path = filepath.Join(vaultRoot, FileName)
		if _, err := os.Stat(path); err != nil {
			cfg := Default()
			cfg.General.VaultRoot = vaultRoot
			return cfg, nil
		}
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, err
	}
	if explicitPath == "" || cfg.General.VaultRoot == "." {
		cfg.General.VaultRoot = vaultRoot
	}
	return cfg, nil
}

func (c *Config) validate(path string) error {
	if c.General.MaxConcurrency < 0 {
		return fmt.Errorf("%s: max_concurrency must be >= 0", path)
	}
	if c.General.MaxMemoryMB < 0 {
		return fmt.Errorf("%s: max_memory_mb must be >= 0", path)
	}
	if c.Active != "" {
		if _, ok := c.Profiles[c.Active]; !ok {
			return fmt.Errorf("%s: profile %q: %w", path, c.Active, ErrNoProfile)
		}
	}
	for name, p := range c.Profiles {
		if strings.TrimSpace(p.RulesPath) == "" {
			return fmt.Errorf("%s: [profiles.%s]: missing rules_path", path, name)
		}
	}
	return nil
}

// Profile resolves the active profile. A config without profiles has
// none: callers fall back to the built-in rule defaults.
func (c *Config) Profile() (Profile, bool, error) {
	if c.Active == "" {
		if len(c.Profiles) == 0 {
			return Profile{}, false, nil
		}
		if p, ok := c.Profiles["default"]; ok {
			return p, true, nil
		}
		return Profile{}, false, fmt.Errorf("config: no active profile set: %w", ErrNoProfile)
	}
	p, ok := c.Profiles[c.Active]
	if !ok {
		return Profile{}, false, fmt.Errorf("config: profile %q: %w", c.Active, ErrNoProfile)
	}
	return p, true, nil
}

// RulesDir returns the absolute rules directory for a profile.
func (c *Config) RulesDir(p Profile) string {
	if filepath.IsAbs(p.RulesPath) {
		return p.RulesPath
	}
	base := c.Dir
	if base == "" {
		base = c.General.VaultRoot
	}
	return filepath.Join(base, p.RulesPath)
}

// AbsCacheDir returns the absolute cache directory.
func (c *Config) AbsCacheDir() string {
	if filepath.IsAbs(c.General.CacheDir) {
		return c.General.CacheDir
	}
	return filepath.Join(c.General.VaultRoot, c.General.CacheDir)
}

// Overrides carries CLI flag values; nil fields keep the file's value.
// Flags always beat the file.
type Overrides struct {
	Profile *string
	Jobs    *int
	NoCache *bool
	Fix     *bool
	DryRun  *bool
	Verbose *bool
}

// Apply mutates the config with the given overrides.
func (c *Config) Apply(ov Overrides) {
	if ov.Profile != nil {
		c.Active = *ov.Profile
	}
	if ov.Jobs != nil {
		c.General.MaxConcurrency = *ov.Jobs
	}
	if ov.NoCache != nil && *ov.NoCache {
		c.General.EnableCache = false
	}
	if ov.Fix != nil {
		c.General.Fix = *ov.Fix
	}
	if ov.DryRun != nil {
		c.General.DryRun = *ov.DryRun
	}
	if ov.Verbose != nil {
		c.General.Verbose = *ov.Verbose
	}
}
