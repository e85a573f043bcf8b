package markdown

// Heading is one section heading discovered in a note body.
// Offset is the byte offset of the heading line within the full note
// content (frontmatter included), so issues can point at it directly.
type Heading struct {
	Level  int
	Text   string
	Offset int
}

// Document is the parsed view of one note that rules operate on.
// Frontmatter is nil when the note has no frontmatter block. Body is the
// content with the frontmatter envelope stripped; BodyOffset is where it
// starts within the original content.
type Document struct {
	Frontmatter map[string]any
	Body        []byte
	BodyOffset  int
	Headings    []Heading
}

// Title returns the frontmatter "title" value, or "".
func (d *Document) Title() string {
	if d.Frontmatter == nil {
		return ""
	}
	if s, ok := d.Frontmatter["title"].(string); ok {
		return s
	}
	return ""
}

// Aliases returns the frontmatter "aliases" list, tolerating both a list
// and a single string value.
func (d *Document) Aliases() []string {
	if d.Frontmatter == nil {
		return nil
	}
	switch v := d.Frontmatter["aliases"].(type) {
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
