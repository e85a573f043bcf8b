package lintfmt

// LineFunc returns the text of a 1-based line in a note, without its
// trailing newline. Empty string means "no excerpt available".
type LineFunc func(path string, line int) string

// Options configures issue rendering.
type Options struct {
	Color     bool
	FullPath  bool   // prefix issues with the absolute vault path
	VaultRoot string // used when FullPath is set
	Width     int    // max line width, 0 = unlimited
	MaxIssues int    // truncate output after N issues, 0 = all
	Lines     LineFunc
	RunID     string // included in JSON output when set
}
