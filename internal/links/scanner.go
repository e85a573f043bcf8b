package links

import "strings"

// Link kinds.
const (
	KindWiki     = "wiki"     // [[target]], [[target|display]], ![[target]]
	KindMarkdown = "markdown" // [text](target), ![alt](target)
)

// Link is one internal or external reference found in note content.
// Offset/End cover the whole construct including brackets; TargetStart/
// TargetEnd cover just the target text, so rewrites can splice it.
type Link struct {
	Kind     string
	Target   string
	Display  string
	Fragment string
	Offset   int
	End      int
	Embed    bool

	TargetStart int
	TargetEnd   int
}

// Scan walks content in a single pass and returns every link it can
// parse. Unterminated or malformed constructs are skipped, never
// errors: the scanner tolerates any byte sequence.
func Scan(content string) []Link {
	var out []Link
	i := 0
	for i < len(content) {
		c := content[i]
		if c != '[' {
			i++
			continue
		}

		embed := i > 0 && content[i-1] == '!'

		if i+1 < len(content) && content[i+1] == '[' {
			if l, next, ok := scanWiki(content, i, embed); ok {
				out = append(out, l)
				i = next
				continue
			}
			// advance one byte only: the second '[' may still open a
			// markdown link, as in "[[a](b)"
			i++
			continue
		}

		if l, next, ok := scanMarkdown(content, i, embed); ok {
			out = append(out, l)
			i = next
			continue
		}
		i++
	}
	return out
}

// scanWiki parses [[target]], [[target#fragment|display]] starting at
// the first '[' of the opening pair. Wikilinks never span lines.
func scanWiki(content string, start int, embed bool) (Link, int, bool) {
	inner := start + 2
	end := -1
	for j := inner; j+1 < len(content); j++ {
		if content[j] == '\n' {
			break
		}
		if content[j] == ']' && content[j+1] == ']' {
			end = j
			break
		}
	}
	if end < 0 {
		return Link{}, 0, false
	}

	body := content[inner:end]
	if body == "" {
		return Link{}, 0, false
	}

	target, display, _ := strings.Cut(body, "|")
	targetEnd := inner + len(target)
	target, fragment, _ := cutFragment(target)
	if target == "" && fragment == "" {
		return Link{}, 0, false
	}

	off := start
	if embed {
		off--
	}
	return Link{
		Kind:        KindWiki,
		Target:      target,
		Display:     display,
		Fragment:    fragment,
		Offset:      off,
		End:         end + 2,
		Embed:       embed,
		TargetStart: inner,
		TargetEnd:   targetEnd - len(fragment) - fragLen(fragment),
	}, end + 2, true
}

// scanMarkdown parses [text](target) starting at '['. The target may be
// wrapped in <...> and may carry a "title" after a space; parens inside
// the target are balanced.
func scanMarkdown(content string, start int, embed bool) (Link, int, bool) {
	// find the closing ']' of the text part (no nesting support; inline
	// brackets inside link text are rare enough to skip)
	textEnd := -1
	for j := start + 1; j < len(content); j++ {
		if content[j] == '\n' {
			return Link{}, 0, false
		}
		if content[j] == ']' {
			textEnd = j
			break
		}
	}
	if textEnd < 0 || textEnd+1 >= len(content) || content[textEnd+1] != '(' {
		return Link{}, 0, false
	}

	// balanced paren scan for the target
	depth := 1
	parenEnd := -1
	for j := textEnd + 2; j < len(content); j++ {
		switch content[j] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				parenEnd = j
			}
		case '\n':
			return Link{}, 0, false
		}
		if parenEnd >= 0 {
			break
		}
	}
	if parenEnd < 0 {
		return Link{}, 0, false
	}

	rawStart := textEnd + 2
	raw := content[rawStart:parenEnd]

	targetStart, targetEnd := rawStart, parenEnd
	target := raw
	if strings.HasPrefix(target, "<") {
		if close := strings.IndexByte(target, '>'); close > 0 {
			targetStart = rawStart + 1
			targetEnd = rawStart + close
			target = target[1:close]
		}
	} else if sp := strings.IndexAny(target, " \t"); sp >= 0 {
		// drop a trailing "title" part
		targetEnd = rawStart + sp
		target = target[:sp]
	}

	target, fragment, _ := cutFragment(target)
	targetEnd -= len(fragment) + fragLen(fragment)

	off := start
	if embed {
		off--
	}
	return Link{
		Kind:        KindMarkdown,
		Target:      target,
		Display:     content[start+1 : textEnd],
		Fragment:    fragment,
		Offset:      off,
		End:         parenEnd + 1,
		Embed:       embed,
		TargetStart: targetStart,
		TargetEnd:   targetEnd,
	}, parenEnd + 1, true
}

func cutFragment(target string) (string, string, bool) {
	if idx := strings.IndexByte(target, '#'); idx >= 0 {
		return target[:idx], target[idx+1:], true
	}
	return target, "", false
}

// fragLen accounts for the '#' separator when a fragment is present.
func fragLen(fragment string) int {
	if fragment == "" {
		return 0
	}
	return 1
}

// IsExternal reports whether a target is an absolute URL (has a scheme
// like http:, mailto:) or is protocol-relative (//host).
func IsExternal(target string) bool {
	if strings.HasPrefix(target, "//") {
		return true
	}
	colon := strings.IndexByte(target, ':')
	if colon <= 0 {
		return false
	}
	scheme := target[:colon]
	for i := 0; i < len(scheme); i++ {
		c := scheme[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case i > 0 && (c >= '0' && c <= '9' || c == '+' || c == '-' || c == '.'):
		default:
			return false
		}
	}
	return true
}
