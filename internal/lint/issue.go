package lint

// Issue is a single finding reported by a rule against one note.
// Line and Col are 1-based; zero means the issue concerns the whole file.
type Issue struct {
	Rule     RuleID
	Severity Severity
	Path     string
	Line     int
	Col      int
	Message  string
	Fixable  bool
}

// ChangeKind discriminates the variants of FileChange.
type ChangeKind uint8

const (
	// ChangeEdit splices NewText over [Offset, Offset+len(OldText)).
	ChangeEdit ChangeKind = iota
	// ChangeMove renames Path to NewPath.
	ChangeMove
	// ChangeDelete removes Path.
	ChangeDelete
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeEdit:
		return "edit"
	case ChangeMove:
		return "move"
	case ChangeDelete:
		return "delete"
	}
	return "unknown"
}

// FileChange is one concrete modification proposed by a fix.
// Paths are vault-relative slash paths.
type FileChange struct {
	Kind ChangeKind
	Path string

	// Edit fields. OldText guards the splice: when non-empty, the bytes
	// at [Offset, Offset+len(OldText)) must still equal it at apply time.
	Offset  int
	OldText string
	NewText string

	// Move target.
	NewPath string
}

// Edit builds an edit change at a byte offset with an OldText guard.
func Edit(path string, offset int, oldText, newText string) FileChange {
	return FileChange{Kind: ChangeEdit, Path: path, Offset: offset, OldText: oldText, NewText: newText}
}

// Insert builds a guard-less edit that inserts text at a byte offset.
func Insert(path string, offset int, text string) FileChange {
	return FileChange{Kind: ChangeEdit, Path: path, Offset: offset, NewText: text}
}

// Move builds a rename change.
func Move(path, newPath string) FileChange {
	return FileChange{Kind: ChangeMove, Path: path, NewPath: newPath}
}

// Delete builds a removal change.
func Delete(path string) FileChange {
	return FileChange{Kind: ChangeDelete, Path: path}
}

// Fix is a set of changes that resolve one issue. Changes for a single
// file apply all-or-nothing.
type Fix struct {
	Rule        RuleID
	Path        string
	Description string
	Changes     []FileChange
}
