package engine

// Stage describes a high-level processing phase.
type Stage string

const (
	// StageScan is the vault discovery and load stage.
	StageScan Stage = "scan"
	// StageLint is the rule execution stage.
	StageLint Stage = "lint"
	// StageFix is the fix application stage.
	StageFix Stage = "fix"
	// StageLinks is the link maintenance stage.
	StageLinks Stage = "links"
	// StageFlush is the cache flush stage.
	StageFlush Stage = "flush"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusStart indicates the stage began for a path.
	StatusStart Status = "start"
	// StatusDone indicates the stage finished for a path.
	StatusDone Status = "done"
	// StatusSkip indicates work was avoided (cache hit).
	StatusSkip Status = "skip"
	// StatusError indicates the stage failed for a path.
	StatusError Status = "error"
)

// Event reports progress for a note (or for the overall run when Path
// is empty).
type Event struct {
	Stage  Stage
	Status Status
	Path   string
	Detail string
	Err    error
}

// EventSink consumes progress events. Emit must be safe for concurrent
// use; the engine calls it from worker goroutines.
type EventSink interface {
	Emit(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) Emit(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}
