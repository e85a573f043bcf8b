package vault

type (
	// NoteID uniquely identifies a loaded note within a NoteSet.
	NoteID uint32
	// NoteFlags encodes metadata about how a note was loaded.
	NoteFlags uint8
)

const (
	// NoteVirtual indicates the note was added from memory (test, stdin).
	NoteVirtual NoteFlags = 1 << iota
	NoteHadBOM
	NoteNormalizedCRLF
)

// Note captures metadata and content for a single vault note.
// Rel is the vault-relative slash path used as the note's identity.
type Note struct {
	ID      NoteID
	Rel     string
	Content []byte
	LineIdx []uint32
	Size    int64
	ModTime int64 // unix nanoseconds; zero for virtual notes
	Hash    [32]byte
	Flags   NoteFlags
}

// LineCol represents a human-readable position in a note.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Fingerprint is the cheap identity of a note's on-disk state.
// Size and ModTime always participate; Hash only when content hashing
// is enabled (HasHash set).
type Fingerprint struct {
	Size    int64
	ModTime int64
	Hash    [32]byte
	HasHash bool
}

// Equal reports whether two fingerprints describe the same content.
// Hash participates only when both sides carry one.
func (fp Fingerprint) Equal(other Fingerprint) bool {
	if fp.Size != other.Size || fp.ModTime != other.ModTime {
		return false
	}
	if fp.HasHash && other.HasHash {
		return fp.Hash == other.Hash
	}
	return true
}
