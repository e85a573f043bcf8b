package links

import (
	"log/slog"
	"path"
	"strings"

	"vaultlint/internal/lint"
)

// UpdateResult is the outcome of rewriting one note's links. Content is
// the rewritten text; inputs are never mutated.
type UpdateResult struct {
	Content      string
	LinksUpdated int
	Errors       []string
}

// Options configures a Maintainer.
type Options struct {
	// ResolveExtensions are tried when a link target omits its
	// extension. Defaults to [".md"].
	ResolveExtensions []string
	Logger            *slog.Logger
}

// Maintainer rewrites intra-vault references after structural fixes.
// Moves rewrite the references pointing at the old path; deletes never
// rewrite anything (dangling links are a rule's finding, not something
// to erase silently). External URLs are always left untouched.
type Maintainer struct {
	exts []string
	log  *slog.Logger
}

// New creates a Maintainer.
func New(opts Options) *Maintainer {
	exts := opts.ResolveExtensions
	if len(exts) == 0 {
		exts = []string{".md"}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Maintainer{exts: exts, log: log}
}

// UpdateContent rewrites every reference in content that resolves to a
// moved file. sourcePath is the note's vault-relative path, used to
// resolve relative targets. Display text, fragments, and the link form
// are preserved. Malformed constructs are skipped with zero errors.
func (m *Maintainer) UpdateContent(content, sourcePath string, changes []lint.FileChange) UpdateResult {
	return m.update(content, sourcePath, moveSet(changes), nil)
}

// UpdateVault applies UpdateContent across the whole vault and returns
// only the notes whose content actually changed. Basename ambiguity for
// wikilink style preservation is computed over the post-move note set.
func (m *Maintainer) UpdateVault(notes map[string]string, changes []lint.FileChange) map[string]UpdateResult {
	moves := moveSet(changes)
	if len(moves) == 0 {
		return nil
	}

	// count basenames as they will exist after the moves
	counts := make(map[string]int, len(notes))
	for p := range notes {
		if to, ok := moves[p]; ok {
			p = to
		}
		counts[strings.ToLower(baseNoExt(p))]++
	}

	out := make(map[string]UpdateResult)
	for p, content := range notes {
		src := p
		if to, ok := moves[p]; ok {
			src = to // the note itself moved; resolve from its new home
		}
		res := m.update(content, src, moves, counts)
		if res.Content != content {
			out[p] = res
		}
	}
	return out
}

// moveSet extracts vault-relative oldPath -> newPath from move changes.
func moveSet(changes []lint.FileChange) map[string]string {
	moves := make(map[string]string)
	for _, ch := range changes {
		if ch.Kind == lint.ChangeMove && ch.Path != "" && ch.NewPath != "" {
			moves[path.Clean(ch.Path)] = path.Clean(ch.NewPath)
		}
	}
	return moves
}

type edit struct {
	start, end int
	text       string
}

func (m *Maintainer) update(content, sourcePath string, moves map[string]string, baseCounts map[string]int) UpdateResult {
	res := UpdateResult{Content: content}
	if len(moves) == 0 {
		return res
	}

	srcDir := path.Dir(sourcePath)
	var edits []edit

	for _, l := range Scan(content) {
		if l.Target == "" || IsExternal(l.Target) {
			continue
		}
		oldPath, ok := m.resolveMove(l, srcDir, moves)
		if !ok {
			continue
		}
		newPath := moves[oldPath]
		newTarget := m.newTarget(l, srcDir, newPath, baseCounts)
		if newTarget == l.Target {
			continue
		}
		edits = append(edits, edit{start: l.TargetStart, end: l.TargetEnd, text: newTarget})
	}

	if len(edits) == 0 {
		return res
	}

	// splice back-to-front so earlier offsets stay valid
	b := []byte(content)
	for i := len(edits) - 1; i >= 0; i-- {
		e := edits[i]
		b = append(b[:e.start], append([]byte(e.text), b[e.end:]...)...)
	}
	res.Content = string(b)
	res.LinksUpdated = len(edits)
	return res
}

// resolveMove reports which moved file (if any) the link points at.
// Wikilink targets resolve vault-relative or by bare basename; markdown
// targets resolve relative to the source note's directory first.
func (m *Maintainer) resolveMove(l Link, srcDir string, moves map[string]string) (string, bool) {
	t := path.Clean(strings.TrimSpace(l.Target))

	var candidates []string
	if l.Kind == KindMarkdown || strings.HasPrefix(l.Target, "./") || strings.HasPrefix(l.Target, "../") {
		candidates = append(candidates, path.Clean(path.Join(srcDir, t)))
	}
	candidates = append(candidates, t)

	for _, cand := range candidates {
		if _, ok := moves[cand]; ok {
			return cand, true
		}
		for _, ext := range m.exts {
			if _, ok := moves[cand+ext]; ok {
				return cand + ext, true
			}
		}
	}

	// wikilink bare-basename resolution: [[Note]] matches a move of
	// any/dir/Note.md
	if l.Kind == KindWiki && !strings.Contains(t, "/") {
		for oldPath := range moves {
			if strings.EqualFold(baseNoExt(oldPath), t) || path.Base(oldPath) == t {
				return oldPath, true
			}
		}
	}
	return "", false
}

// newTarget renders the rewritten target in the same style the original
// used: bare-basename wikilinks stay basenames while unambiguous,
// path-style targets stay paths (relative for markdown links), and the
// extension is kept only if the original spelled it out.
func (m *Maintainer) newTarget(l Link, srcDir, newPath string, baseCounts map[string]int) string {
	hadExt := path.Ext(l.Target) != ""

	if l.Kind == KindWiki {
		bare := !strings.Contains(l.Target, "/")
		if bare && (baseCounts == nil || baseCounts[strings.ToLower(baseNoExt(newPath))] <= 1) {
			if hadExt {
				return path.Base(newPath)
			}
			return baseNoExt(newPath)
		}
		if hadExt {
			return newPath
		}
		return strings.TrimSuffix(newPath, path.Ext(newPath))
	}

	// markdown link: relative to the source note's directory
	rel := relSlash(srcDir, newPath)
	if hadExt {
		return rel
	}
	return strings.TrimSuffix(rel, path.Ext(rel))
}

func baseNoExt(p string) string {
	b := path.Base(p)
	return strings.TrimSuffix(b, path.Ext(b))
}

// relSlash computes the relative slash path from dir to target, both
// vault-relative. It never fails: worst case it returns target as-is.
func relSlash(dir, target string) string {
	if dir == "." || dir == "" {
		return target
	}
	dirParts := strings.Split(dir, "/")
	tgtParts := strings.Split(target, "/")

	common := 0
	for common < len(dirParts) && common < len(tgtParts)-1 && dirParts[common] == tgtParts[common] {
		common++
	}
	var sb strings.Builder
	for i := common; i < len(dirParts); i++ {
		sb.WriteString("../")
	}
	sb.WriteString(strings.Join(tgtParts[common:], "/"))
	return sb.String()
}
