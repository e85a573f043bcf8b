package lint

import (
	"fmt"
	"strings"
)

// RuleID identifies a rule as major.minor, where minor selects a variant
// of the same rule family (e.g. frontmatter-required-fields.strict).
// At most one minor per major may be enabled in a profile.
type RuleID struct {
	Major string
	Minor string
}

func (id RuleID) String() string {
	if id.Minor == "" {
		return id.Major
	}
	return id.Major + "." + id.Minor
}

// IsZero reports whether the id is empty.
func (id RuleID) IsZero() bool {
	return id.Major == ""
}

// Less orders ids lexicographically by major, then minor.
func (id RuleID) Less(other RuleID) bool {
	if id.Major != other.Major {
		return id.Major < other.Major
	}
	return id.Minor < other.Minor
}

// ParseRuleID splits "major.minor" (minor optional) and validates both
// segments: lowercase letters, digits and hyphens, starting with a letter.
func ParseRuleID(s string) (RuleID, error) {
	major, minor, _ := strings.Cut(s, ".")
	if !validIDSegment(major) {
		return RuleID{}, fmt.Errorf("lint: invalid rule id %q", s)
	}
	if minor != "" && !validIDSegment(minor) {
		return RuleID{}, fmt.Errorf("lint: invalid rule id %q", s)
	}
	return RuleID{Major: major, Minor: minor}, nil
}

func validIDSegment(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9', c == '-':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
