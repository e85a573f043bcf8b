package rules

import (
	"fmt"

	"vaultlint/internal/lint"
)

// factory builds a rule variant from its [config] settings.
type factory func(Settings) Rule

// builtins maps "major.minor" (or bare "major") to rule factories, with
// each variant's default severity.
var builtins = map[string]struct {
	fn       factory
	severity lint.Severity
	fixable  bool
}{
	"frontmatter-required-fields.strict":  {newFrontmatterRule(variantStrict), lint.SeverityError, true},
	"frontmatter-required-fields.minimal": {newFrontmatterRule(variantMinimal), lint.SeverityWarning, true},
	"heading-hierarchy.strict":            {newHeadingRule(variantStrict), lint.SeverityWarning, true},
	"heading-hierarchy.flexible":          {newHeadingRule(variantFlexible), lint.SeverityWarning, true},
	"naming-convention.kebab-case":        {newNamingRule(styleKebab), lint.SeverityWarning, true},
	"naming-convention.snake-case":        {newNamingRule(styleSnake), lint.SeverityWarning, true},
	"naming-convention.title-case":        {newNamingRule(styleTitle), lint.SeverityWarning, true},
	"trailing-whitespace":                 {newWhitespaceRule, lint.SeverityHint, true},
	"dangling-links":                      {newDanglingRule, lint.SeverityWarning, false},
	"duplicate-aliases":                   {newAliasRule, lint.SeverityWarning, false},
}

const (
	variantStrict   = "strict"
	variantMinimal  = "minimal"
	variantFlexible = "flexible"
)

// NewBuiltin instantiates a built-in rule by id, applying settings.
// The returned severity is the variant's default, before any profile
// override.
func NewBuiltin(id lint.RuleID, settings Settings) (Rule, lint.Severity, error) {
	b, ok := builtins[id.String()]
	if !ok {
		return nil, 0, fmt.Errorf("rules: unknown rule %q", id)
	}
	return b.fn(settings), b.severity, nil
}

// Fixable reports whether a built-in rule can produce fixes.
func Fixable(id lint.RuleID) bool {
	b, ok := builtins[id.String()]
	return ok && b.fixable
}

// BuiltinIDs returns every built-in rule id, unsorted.
func BuiltinIDs() []lint.RuleID {
	out := make([]lint.RuleID, 0, len(builtins))
	for s := range builtins {
		id, err := lint.ParseRuleID(s)
		if err != nil {
			panic(fmt.Errorf("rules: bad builtin id %q: %w", s, err))
		}
		out = append(out, id)
	}
	return out
}
