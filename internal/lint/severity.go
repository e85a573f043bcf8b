package lint

import "fmt"

// Severity defines the importance of an issue.
type Severity uint8

const (
	// SeverityHint is for stylistic suggestions.
	SeverityHint Severity = iota
	// SeverityInfo is for informational issues.
	SeverityInfo
	// SeverityWarning is for issues that should be fixed.
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// ParseSeverity converts a config string into a Severity.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "hint":
		return SeverityHint, nil
	case "info":
		return SeverityInfo, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "error":
		return SeverityError, nil
	}
	return SeverityHint, fmt.Errorf("lint: unknown severity %q", s)
}
