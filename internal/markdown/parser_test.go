package markdown

import "testing"

func TestParse_FrontmatterAndHeadings(t *testing.T) {
	content := []byte(`---
title: My Note
tags: [a, b]
aliases:
  - Alt Name
---
# My Note

body text

## Section
`)
	doc := NewParser().Parse(content)

	if doc.Title() != "My Note" {
		t.Fatalf("title = %q", doc.Title())
	}
	aliases := doc.Aliases()
	if len(aliases) != 1 || aliases[0] != "Alt Name" {
		t.Fatalf("aliases = %v", aliases)
	}
	if doc.BodyOffset == 0 {
		t.Fatal("expected nonzero body offset")
	}

	if len(doc.Headings) != 2 {
		t.Fatalf("headings = %+v", doc.Headings)
	}
	h := doc.Headings[0]
	if h.Level != 1 || h.Text != "My Note" {
		t.Fatalf("first heading = %+v", h)
	}
	if content[h.Offset] != '#' {
		t.Fatalf("heading offset %d points at %q", h.Offset, content[h.Offset])
	}
	if doc.Headings[1].Level != 2 || doc.Headings[1].Text != "Section" {
		t.Fatalf("second heading = %+v", doc.Headings[1])
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	content := []byte("# Bare\n\ntext\n")
	doc := NewParser().Parse(content)

	if doc.Frontmatter != nil && len(doc.Frontmatter) != 0 {
		t.Fatalf("frontmatter = %v", doc.Frontmatter)
	}
	if doc.BodyOffset != 0 {
		t.Fatalf("body offset = %d", doc.BodyOffset)
	}
	if len(doc.Headings) != 1 || doc.Headings[0].Text != "Bare" {
		t.Fatalf("headings = %+v", doc.Headings)
	}
}

func TestParse_MalformedFrontmatterDegrades(t *testing.T) {
	content := []byte("---\ntitle: [unterminated\n---\n# H\n")
	doc := NewParser().Parse(content)

	// must not panic; body falls back to the whole content
	if doc.BodyOffset != 0 {
		t.Fatalf("body offset = %d", doc.BodyOffset)
	}
	if doc.Title() != "" {
		t.Fatalf("title = %q", doc.Title())
	}
}

func TestParse_EmptyContent(t *testing.T) {
	doc := NewParser().Parse(nil)
	if len(doc.Headings) != 0 {
		t.Fatalf("headings = %+v", doc.Headings)
	}
}
