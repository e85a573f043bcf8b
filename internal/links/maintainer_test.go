package links

import (
	"strings"
	"testing"

	"vaultlint/internal/lint"
)

func TestUpdateContent_WikilinkMove(t *testing.T) {
	m := New(Options{})
	content := "intro [[Old Note]] middle [[Old Note|nice name]] end"
	changes := []lint.FileChange{lint.Move("Old Note.md", "archive/New Note.md")}

	res := m.UpdateContent(content, "index.md", changes)
	if res.LinksUpdated != 2 {
		t.Fatalf("updated = %d, want 2", res.LinksUpdated)
	}
	if len(res.Errors) != 0 {
		t.Fatalf("errors = %v", res.Errors)
	}
	if strings.Contains(res.Content, "Old Note") {
		t.Fatalf("residual old target: %q", res.Content)
	}
	if !strings.Contains(res.Content, "[[New Note]]") {
		t.Fatalf("bare wikilink style lost: %q", res.Content)
	}
	if !strings.Contains(res.Content, "[[New Note|nice name]]") {
		t.Fatalf("display text lost: %q", res.Content)
	}
}

func TestUpdateContent_MarkdownRelativeMove(t *testing.T) {
	m := New(Options{})
	content := "see [ref](../shared/doc.md) here"
	changes := []lint.FileChange{lint.Move("shared/doc.md", "shared/renamed.md")}

	res := m.UpdateContent(content, "notes/page.md", changes)
	if res.LinksUpdated != 1 {
		t.Fatalf("updated = %d: %q", res.LinksUpdated, res.Content)
	}
	if !strings.Contains(res.Content, "[ref](../shared/renamed.md)") {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestUpdateContent_FragmentPreserved(t *testing.T) {
	m := New(Options{})
	content := "[[Target#Some Heading|go]]"
	changes := []lint.FileChange{lint.Move("Target.md", "Moved.md")}

	res := m.UpdateContent(content, "a.md", changes)
	if res.Content != "[[Moved#Some Heading|go]]" {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestUpdateContent_DeleteNeverRewrites(t *testing.T) {
	m := New(Options{})
	content := "[[Gone]] and [link](gone.md)"
	changes := []lint.FileChange{lint.Delete("Gone.md"), lint.Delete("gone.md")}

	res := m.UpdateContent(content, "a.md", changes)
	if res.Content != content || res.LinksUpdated != 0 {
		t.Fatalf("delete rewrote content: %q", res.Content)
	}
}

func TestUpdateContent_ExternalUntouched(t *testing.T) {
	m := New(Options{})
	content := "[x](https://example.com/Old.md) [[Old]] [p](//cdn.io/Old.md)"
	changes := []lint.FileChange{lint.Move("Old.md", "New.md")}

	res := m.UpdateContent(content, "a.md", changes)
	if !strings.Contains(res.Content, "https://example.com/Old.md") {
		t.Fatalf("external URL rewritten: %q", res.Content)
	}
	if !strings.Contains(res.Content, "//cdn.io/Old.md") {
		t.Fatalf("protocol-relative URL rewritten: %q", res.Content)
	}
	if res.LinksUpdated != 1 {
		t.Fatalf("updated = %d, want only the wikilink", res.LinksUpdated)
	}
}

func TestUpdateContent_MalformedPassthrough(t *testing.T) {
	m := New(Options{})
	content := "[[unclosed"
	changes := []lint.FileChange{lint.Move("unclosed.md", "x.md")}

	res := m.UpdateContent(content, "a.md", changes)
	if res.Content != content {
		t.Fatalf("content changed: %q", res.Content)
	}
	if res.LinksUpdated != 0 || len(res.Errors) != 0 {
		t.Fatalf("result = %+v", res)
	}
}

func TestUpdateContent_EmbedPreserved(t *testing.T) {
	m := New(Options{ResolveExtensions: []string{".md", ".png"}})
	content := "![[diagram.png]]"
	changes := []lint.FileChange{lint.Move("diagram.png", "assets/diagram.png")}

	res := m.UpdateContent(content, "a.md", changes)
	if res.Content != "![[assets/diagram.png]]" {
		t.Fatalf("content = %q", res.Content)
	}
}

func TestUpdateVault_OnlyChangedNotesReturned(t *testing.T) {
	m := New(Options{})
	notes := map[string]string{
		"index.md":     "[[Old]]",
		"unrelated.md": "no links here",
		"other.md":     "[also](Old.md)",
		"Old.md":       "self content",
		"untouched.md": "[[Different]]",
	}
	changes := []lint.FileChange{lint.Move("Old.md", "New.md")}

	got := m.UpdateVault(notes, changes)
	if len(got) != 2 {
		t.Fatalf("changed notes = %v", got)
	}
	if !strings.Contains(got["index.md"].Content, "[[New]]") {
		t.Fatalf("index = %q", got["index.md"].Content)
	}
	if !strings.Contains(got["other.md"].Content, "(New.md)") {
		t.Fatalf("other = %q", got["other.md"].Content)
	}
	// inputs never mutated
	if notes["index.md"] != "[[Old]]" {
		t.Fatal("input map mutated")
	}
}

func TestUpdateVault_AmbiguousBasenameBecomesPath(t *testing.T) {
	m := New(Options{})
	notes := map[string]string{
		"index.md":   "[[Unique]]",
		"a/Taken.md": "x",
		"Unique.md":  "y",
	}
	// moving Unique.md to b/Taken.md collides with a/Taken.md's basename
	changes := []lint.FileChange{lint.Move("Unique.md", "b/Taken.md")}

	got := m.UpdateVault(notes, changes)
	res, ok := got["index.md"]
	if !ok {
		t.Fatalf("index.md not rewritten: %v", got)
	}
	if !strings.Contains(res.Content, "[[b/Taken]]") {
		t.Fatalf("ambiguous basename kept: %q", res.Content)
	}
}

func TestUpdateVault_NoMoves(t *testing.T) {
	m := New(Options{})
	got := m.UpdateVault(map[string]string{"a.md": "[[b]]"}, []lint.FileChange{
		lint.Edit("a.md", 0, "", "x"),
	})
	if got != nil {
		t.Fatalf("got %v", got)
	}
}
