package markdown

import (
	"bytes"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// Parser turns note content into a Document. It is stateless, so one
// instance can be shared across workers without locking.
type Parser struct {
	md goldmark.Markdown
}

// NewParser constructs a parser with GFM extensions enabled.
func NewParser() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Parse extracts the frontmatter envelope and walks the markdown AST for
// headings. Malformed frontmatter degrades to "no frontmatter, body is the
// whole content" rather than failing: rules see whatever parsed.
func (p *Parser) Parse(content []byte) *Document {
	doc := &Document{Body: content}

	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(content), &meta)
	if err == nil {
		doc.Frontmatter = meta
		doc.Body = body
		doc.BodyOffset = len(content) - len(body)
	}

	doc.Headings = p.headings(doc.Body, doc.BodyOffset)
	return doc
}

func (p *Parser) headings(body []byte, bodyOffset int) []Heading {
	if len(body) == 0 {
		return nil
	}
	root := p.md.Parser().Parse(text.NewReader(body))

	var out []Heading
	_ = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		off := 0
		if lines := h.Lines(); lines.Len() > 0 {
			off = lineStart(body, lines.At(0).Start)
		}
		out = append(out, Heading{
			Level:  h.Level,
			Text:   string(h.Text(body)),
			Offset: bodyOffset + off,
		})
		return ast.WalkSkipChildren, nil
	})
	return out
}

// lineStart walks back from off to the start of its line, so a heading's
// offset covers the leading '#' run rather than just the text.
func lineStart(body []byte, off int) int {
	if off > len(body) {
		off = len(body)
	}
	for off > 0 && body[off-1] != '\n' {
		off--
	}
	return off
}
