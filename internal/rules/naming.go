package rules

import (
	"context"
	"fmt"
	"path"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"vaultlint/internal/lint"
)

type namingStyle string

const (
	styleKebab namingStyle = "kebab-case"
	styleSnake namingStyle = "snake_case"
	styleTitle namingStyle = "title-case"
)

// namingRule checks that the note's basename follows a naming style.
// Its fix proposes a move, which is what exercises link maintenance
// downstream.
type namingRule struct {
	id    lint.RuleID
	style namingStyle
}

func newNamingRule(style namingStyle) factory {
	minor := map[namingStyle]string{
		styleKebab: "kebab-case",
		styleSnake: "snake-case",
		styleTitle: "title-case",
	}[style]
	return func(s Settings) Rule {
		return &namingRule{
			id:    lint.RuleID{Major: "naming-convention", Minor: minor},
			style: style,
		}
	}
}

func (r *namingRule) ID() lint.RuleID { return r.id }

func (r *namingRule) Description() string {
	return fmt.Sprintf("note filenames follow %s", r.style)
}

func (r *namingRule) Lint(ctx context.Context, nc *NoteContext) ([]lint.Issue, []lint.Fix, error) {
	rel := nc.Note.Rel
	base := strings.TrimSuffix(path.Base(rel), path.Ext(rel))
	want := convertName(base, r.style)
	if want == base || want == "" {
		return nil, nil, nil
	}

	newRel := path.Join(path.Dir(rel), want+path.Ext(rel))
	issues := []lint.Issue{issueAt(r.id, lint.SeverityWarning, nc, -1,
		fmt.Sprintf("filename %q is not %s (want %q)", base, r.style, want), true)}
	fixes := []lint.Fix{{
		Rule:        r.id,
		Path:        rel,
		Description: fmt.Sprintf("rename to %s", newRel),
		Changes:     []lint.FileChange{lint.Move(rel, newRel)},
	}}
	return issues, fixes, nil
}

// convertName renders a basename in the target style. Words are split
// on spaces, hyphens, underscores, and lower-to-upper camel boundaries.
func convertName(name string, style namingStyle) string {
	words := splitWords(name)
	if len(words) == 0 {
		return name
	}
	switch style {
	case styleKebab:
		return strings.ToLower(strings.Join(words, "-"))
	case styleSnake:
		return strings.ToLower(strings.Join(words, "_"))
	case styleTitle:
		caser := cases.Title(language.English)
		for i, w := range words {
			words[i] = caser.String(strings.ToLower(w))
		}
		return strings.Join(words, " ")
	}
	return name
}

func splitWords(name string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}
	runes := []rune(name)
	for i, c := range runes {
		switch {
		case c == ' ' || c == '-' || c == '_' || c == '.':
			flush()
		case unicode.IsUpper(c) && i > 0 && unicode.IsLower(runes[i-1]):
			flush()
			cur.WriteRune(c)
		default:
			cur.WriteRune(c)
		}
	}
	flush()
	return words
}
