package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"vaultlint/internal/lint"
)

// ruleFile mirrors one enabled/*.toml rule config.
type ruleFile struct {
	Rule struct {
		ID          string `toml:"id"`
		Name        string `toml:"name"`
		Description string `toml:"description"`
		Category    string `toml:"category"`
		Severity    string `toml:"severity"`
	} `toml:"rule"`
	Config map[string]any `toml:"config"`
}

// Load reads every rule config under <profileDir>/enabled/ and returns
// the configured rules sorted by ID. Two configs sharing a Major are a
// conflict: a note must never be checked by two variants of the same
// rule.
func Load(profileDir string) ([]*ConfiguredRule, error) {
	dir := filepath.Join(profileDir, "enabled")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, fmt.Errorf("rules: read %s: %w", dir, err)
	}

	byMajor := make(map[string]string)
	var out []*ConfiguredRule
	for _, ent := range entries {
		if ent.IsDir() || !strings.EqualFold(filepath.Ext(ent.Name()), ".toml") {
			continue
		}
		path := filepath.Join(dir, ent.Name())
		cr, err := loadOne(path)
		if err != nil {
			return nil, err
		}
		major := cr.Rule.ID().Major
		if prev, ok := byMajor[major]; ok {
			return nil, fmt.Errorf("rules: %s and %s both enable variants of %q", prev, path, major)
		}
		byMajor[major] = path
		out = append(out, cr)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Rule.ID().String() < out[j].Rule.ID().String()
	})
	return out, nil
}

func loadOne(path string) (*ConfiguredRule, error) {
	var rf ruleFile
	meta, err := toml.DecodeFile(path, &rf)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("rule") {
		return nil, fmt.Errorf("%s: missing [rule]", path)
	}
	if !meta.IsDefined("rule", "id") || strings.TrimSpace(rf.Rule.ID) == "" {
		return nil, fmt.Errorf("%s: missing [rule].id", path)
	}

	id, err := lint.ParseRuleID(rf.Rule.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	settings := Settings(rf.Config)
	rule, severity, err := NewBuiltin(id, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if meta.IsDefined("rule", "severity") {
		severity, err = lint.ParseSeverity(rf.Rule.Severity)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	return &ConfiguredRule{
		Rule:     rule,
		Severity: severity,
		Include:  settings.Strings("include_patterns", nil),
		Exclude:  settings.Strings("exclude_patterns", nil),
	}, nil
}

// Defaults returns every built-in rule at its default severity, one
// variant per Major (the first in lexical order wins). Used when the
// vault has no rule configuration at all.
func Defaults() []*ConfiguredRule {
	ids := BuiltinIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	seen := make(map[string]bool)
	var out []*ConfiguredRule
	for _, id := range ids {
		if seen[id.Major] {
			continue
		}
		seen[id.Major] = true
		rule, severity, err := NewBuiltin(id, nil)
		if err != nil {
			continue
		}
		out = append(out, &ConfiguredRule{Rule: rule, Severity: severity})
	}
	return out
}
