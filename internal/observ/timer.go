package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase is one timed section of a run. Done stops the clock; calling
// it twice keeps the first measurement.
type Phase struct {
	name  string
	start time.Time
	dur   time.Duration
	note  string
	done  bool
}

// Done finishes the phase and attaches an optional note.
func (p *Phase) Done(note string) {
	if p == nil || p.done {
		return
	}
	p.dur = time.Since(p.start)
	p.note = note
	p.done = true
}

// Timer collects phase timings for a run. Begin and Done are called
// from the orchestrating goroutine only.
type Timer struct {
	phases []*Phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin starts timing a named phase.
func (t *Timer) Begin(name string) *Phase {
	p := &Phase{name: name, start: time.Now()}
	t.phases = append(t.phases, p)
	return p
}

// Summary renders the timings as indented text for stderr.
func (t *Timer) Summary() string {
	rep := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	for _, p := range rep.Phases {
		fmt.Fprintf(&b, "  %-20s %7.2f ms", p.Name, p.DurationMS)
		if p.Note != "" {
			b.WriteString("  // " + p.Note)
		}
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "  %-20s %7.2f ms\n", "total", rep.TotalMS)
	return b.String()
}

// PhaseReport is the serializable form of one timed phase.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report aggregates the timer's phases with a total.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	rep := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.dur
		rep.Phases[i] = PhaseReport{
			Name:       p.name,
			DurationMS: float64(p.dur) / float64(time.Millisecond),
			Note:       p.note,
		}
	}
	rep.TotalMS = float64(total) / float64(time.Millisecond)
	return rep
}
