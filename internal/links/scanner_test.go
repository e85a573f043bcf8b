package links

import "testing"

func TestScan_Wikilinks(t *testing.T) {
	content := "see [[Note One]] and [[dir/Note Two|display]] plus ![[image.png]] and [[Ref#Section|x]]"
	got := Scan(content)
	if len(got) != 4 {
		t.Fatalf("found %d links: %+v", len(got), got)
	}

	if got[0].Kind != KindWiki || got[0].Target != "Note One" || got[0].Display != "" {
		t.Fatalf("link 0 = %+v", got[0])
	}
	if got[1].Target != "dir/Note Two" || got[1].Display != "display" {
		t.Fatalf("link 1 = %+v", got[1])
	}
	if !got[2].Embed || got[2].Target != "image.png" {
		t.Fatalf("link 2 = %+v", got[2])
	}
	if got[3].Target != "Ref" || got[3].Fragment != "Section" || got[3].Display != "x" {
		t.Fatalf("link 3 = %+v", got[3])
	}

	// target spans must slice back to the target text
	for _, l := range got {
		if content[l.TargetStart:l.TargetEnd] != l.Target {
			t.Fatalf("target span mismatch: %q vs %+v", content[l.TargetStart:l.TargetEnd], l)
		}
	}
}

func TestScan_MarkdownLinks(t *testing.T) {
	content := `[text](notes/a.md) ![alt](img/pic.png) [t](<with space.md>) [ext](https://example.com/x) [frag](b.md#top) [titled](c.md "my title")`
	got := Scan(content)
	if len(got) != 6 {
		t.Fatalf("found %d links: %+v", len(got), got)
	}

	if got[0].Kind != KindMarkdown || got[0].Target != "notes/a.md" || got[0].Display != "text" {
		t.Fatalf("link 0 = %+v", got[0])
	}
	if !got[1].Embed || got[1].Target != "img/pic.png" {
		t.Fatalf("link 1 = %+v", got[1])
	}
	if got[2].Target != "with space.md" {
		t.Fatalf("link 2 = %+v", got[2])
	}
	if got[3].Target != "https://example.com/x" {
		t.Fatalf("link 3 = %+v", got[3])
	}
	if got[4].Target != "b.md" || got[4].Fragment != "top" {
		t.Fatalf("link 4 = %+v", got[4])
	}
	if got[5].Target != "c.md" {
		t.Fatalf("link 5 = %+v", got[5])
	}
}

func TestScan_MarkdownLinkAfterFailedWikiOpen(t *testing.T) {
	// the outer "[[" is not a wikilink, but "[a](b)" starting at the
	// second bracket is a valid markdown link
	got := Scan("[[a](b)")
	if len(got) != 1 {
		t.Fatalf("found %d links: %+v", len(got), got)
	}
	if got[0].Kind != KindMarkdown || got[0].Target != "b" || got[0].Display != "a" {
		t.Fatalf("link = %+v", got[0])
	}

	got = Scan("x [[pre [a](b.md) post")
	if len(got) != 1 || got[0].Target != "b.md" {
		t.Fatalf("links = %+v", got)
	}
}

func TestScan_MalformedNeverPanics(t *testing.T) {
	cases := []string{
		"[[unclosed",
		"[text](no close",
		"[]()",
		"[[]]",
		"[[a|b|c]]",
		"]][[",
		"[[a\nb]]",
		"[x](a(b)c.md)",
		"![",
		"[",
		"",
		string([]byte{0xff, '[', '[', 0xfe}),
	}
	for _, c := range cases {
		_ = Scan(c) // must not panic
	}

	if got := Scan("[[unclosed"); len(got) != 0 {
		t.Fatalf("unclosed wikilink parsed: %+v", got)
	}
	// balanced parens inside markdown targets do parse
	got := Scan("[x](a(b)c.md)")
	if len(got) != 1 || got[0].Target != "a(b)c.md" {
		t.Fatalf("paren target = %+v", got)
	}
}

func TestIsExternal(t *testing.T) {
	external := []string{
		"https://example.com",
		"http://x",
		"mailto:a@b.c",
		"ftp://host/file",
		"obsidian://open?vault=x",
		"//cdn.example.com/lib.js",
	}
	for _, tgt := range external {
		if !IsExternal(tgt) {
			t.Errorf("IsExternal(%q) = false", tgt)
		}
	}
	internal := []string{
		"notes/a.md",
		"./a.md",
		"../up/b.md",
		"Note Name",
		"not a:scheme", // space before the colon disqualifies it
		"1://digit-first",
		"",
	}
	for _, tgt := range internal {
		if IsExternal(tgt) {
			t.Errorf("IsExternal(%q) = true", tgt)
		}
	}
}
