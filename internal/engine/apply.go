package engine

import (
	"context"
	"fmt"
	"sort"

	"vaultlint/internal/lint"
	"vaultlint/internal/vault"
)

// applyFixes applies fixes all-or-nothing per file: edits are staged
// into a buffer (descending offset, OldText guards, overlap detection)
// and written atomically; moves rename the file and then rewrite the
// links that pointed at it; deletes remove the file without touching
// links. Any guard or conflict failure skips the whole file's fixes
// with an error recorded. DryRun stages and counts but writes nothing.
func (e *Engine) applyFixes(ctx context.Context, vaultRoot string, ns *vault.NoteSet, fixes []lint.Fix, dryRun bool, res *lint.Result) {
	byFile := make(map[string][]lint.Fix)
	var order []string
	for _, fx := range fixes {
		if _, ok := byFile[fx.Path]; !ok {
			order = append(order, fx.Path)
		}
		byFile[fx.Path] = append(byFile[fx.Path], fx)
	}
	sort.Strings(order)

	writer := vault.NewWriter(vaultRoot)
	staged := make(map[string]string) // path -> content after edits
	moves := make(map[string]string)  // old -> new, validated
	var moveChanges []lint.FileChange
	var deletes []string
	applied := make(map[string]bool)

	for _, rel := range order {
		if ctx.Err() != nil {
			res.AddError(ctx.Err())
			return
		}
		note, ok := ns.ByRel(rel)
		if !ok {
			res.AddError(fmt.Errorf("fix %s: note not loaded", rel))
			continue
		}

		var edits []lint.FileChange
		var fileMoves, fileDeletes []lint.FileChange
		for _, fx := range byFile[rel] {
			for _, ch := range fx.Changes {
				switch ch.Kind {
				case lint.ChangeEdit:
					edits = append(edits, ch)
				case lint.ChangeMove:
					fileMoves = append(fileMoves, ch)
				case lint.ChangeDelete:
					fileDeletes = append(fileDeletes, ch)
				}
			}
		}

		e.emit(Event{Stage: StageFix, Status: StatusStart, Path: rel})
		content, err := stageEdits(string(note.Content), edits)
		if err != nil {
			res.AddError(fmt.Errorf("fix %s: %w", rel, err))
			e.emit(Event{Stage: StageFix, Status: StatusError, Path: rel, Err: err})
			continue
		}
		if len(edits) > 0 {
			staged[rel] = content
			applied[rel] = true
		}

		for _, ch := range fileMoves {
			if prev, ok := moves[ch.Path]; ok && prev != ch.NewPath {
				res.AddError(fmt.Errorf("fix %s: conflicting move targets %q and %q", ch.Path, prev, ch.NewPath))
				continue
			}
			moves[ch.Path] = ch.NewPath
			moveChanges = append(moveChanges, ch)
			applied[rel] = true
		}
		for _, ch := range fileDeletes {
			deletes = append(deletes, ch.Path)
			applied[rel] = true
		}
	}

	if !dryRun {
		for rel, content := range staged {
			if err := writer.Write(rel, []byte(content)); err != nil {
				res.AddError(fmt.Errorf("fix %s: %w", rel, err))
				e.emit(Event{Stage: StageFix, Status: StatusError, Path: rel, Err: err})
				delete(applied, rel)
				continue
			}
			e.invalidate(rel)
			e.emit(Event{Stage: StageFix, Status: StatusDone, Path: rel})
		}
		e.applyMoves(ns, writer, staged, moves, moveChanges, applied, res)
		for _, rel := range deletes {
			if err := writer.Delete(rel); err != nil {
				res.AddError(fmt.Errorf("fix %s: %w", rel, err))
				delete(applied, rel)
				continue
			}
			e.invalidate(rel)
			e.emit(Event{Stage: StageFix, Status: StatusDone, Path: rel, Detail: "deleted"})
		}
	}

	res.FixesApplied = len(applied)
}

// applyMoves renames each moved file on disk, then rewrites every link
// in the vault that pointed at an old path and writes the updated
// notes.
func (e *Engine) applyMoves(ns *vault.NoteSet, writer *vault.Writer, staged map[string]string, moves map[string]string, moveChanges []lint.FileChange, applied map[string]bool, res *lint.Result) {
	if len(moveChanges) == 0 {
		return
	}
	moved := make(map[string]string, len(moveChanges))
	for _, ch := range moveChanges {
		if err := writer.Move(ch.Path, ch.NewPath); err != nil {
			res.AddError(fmt.Errorf("fix %s: %w", ch.Path, err))
			e.emit(Event{Stage: StageFix, Status: StatusError, Path: ch.Path, Err: err})
			delete(applied, ch.Path)
			continue
		}
		moved[ch.Path] = ch.NewPath
		e.invalidate(ch.Path)
		e.emit(Event{Stage: StageFix, Status: StatusDone, Path: ch.Path, Detail: "moved to " + ch.NewPath})
	}
	if len(moved) == 0 {
		return
	}

	// rewrite links over the post-edit contents
	notes := ns.Contents()
	for rel, content := range staged {
		notes[rel] = content
	}
	succeeded := make([]lint.FileChange, 0, len(moved))
	for old, to := range moved {
		succeeded = append(succeeded, lint.Move(old, to))
	}

	updated := e.links.UpdateVault(notes, succeeded)
	for rel, ur := range updated {
		target := rel
		if to, ok := moved[rel]; ok {
			target = to // the note itself moved; write at its new home
		}
		e.emit(Event{Stage: StageLinks, Status: StatusStart, Path: target})
		if err := writer.Write(target, []byte(ur.Content)); err != nil {
			res.AddError(fmt.Errorf("links %s: %w", target, err))
			e.emit(Event{Stage: StageLinks, Status: StatusError, Path: target, Err: err})
			continue
		}
		e.invalidate(rel)
		e.invalidate(target)
		e.emit(Event{Stage: StageLinks, Status: StatusDone, Path: target,
			Detail: fmt.Sprintf("%d links updated", ur.LinksUpdated)})
	}
}

func (e *Engine) invalidate(rel string) {
	if e.cache != nil {
		e.cache.Invalidate(rel)
	}
}

// stageEdits applies edit changes to an in-memory buffer. Overlapping
// spans and failed OldText guards abort the whole file.
func stageEdits(content string, edits []lint.FileChange) (string, error) {
	if len(edits) == 0 {
		return content, nil
	}
	sorted := make([]lint.FileChange, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Offset < sorted[j].Offset })

	prevEnd := -1
	for _, ch := range sorted {
		if ch.Offset < 0 || ch.Offset+len(ch.OldText) > len(content) {
			return "", fmt.Errorf("edit at %d out of range", ch.Offset)
		}
		if ch.Offset < prevEnd {
			return "", fmt.Errorf("conflicting edits at %d", ch.Offset)
		}
		if ch.OldText != "" && content[ch.Offset:ch.Offset+len(ch.OldText)] != ch.OldText {
			return "", fmt.Errorf("stale edit at %d: content changed", ch.Offset)
		}
		prevEnd = ch.Offset + len(ch.OldText)
	}

	// descending offset so earlier spans stay valid
	for i := len(sorted) - 1; i >= 0; i-- {
		ch := sorted[i]
		content = content[:ch.Offset] + ch.NewText + content[ch.Offset+len(ch.OldText):]
	}
	return content, nil
}
