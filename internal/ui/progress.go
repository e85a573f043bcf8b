package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"vaultlint/internal/engine"
)

// recentWindow is how many recently touched notes the TUI lists; a
// vault can hold thousands, so the full list is never rendered.
const recentWindow = 8

type progressModel struct {
	title   string
	events  <-chan engine.Event
	spinner spinner.Model
	prog    progress.Model

	total      int
	processed  int
	cachedHits int
	errors     int
	fixed      int

	stageLabel string
	recent     []recentItem
	width      int
	done       bool
}

type recentItem struct {
	path   string
	status string
}

type eventMsg engine.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model fed by the engine's
// ChannelSink. total is the number of discovered notes.
func NewProgressModel(title string, total int, events <-chan engine.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		total:   total,
		width:   80,
	}
}

// Run drives the progress TUI until the event channel closes.
func Run(title string, total int, events <-chan engine.Event) error {
	p := tea.NewProgram(NewProgressModel(title, total, events), tea.WithOutput(os.Stderr))
	_, err := p.Run()
	return err
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(engine.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		progressModel, cmd := m.prog.Update(msg)
		m.prog = progressModel.(progress.Model)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = fmt.Sprintf("done: %s", header)
	} else {
		header = fmt.Sprintf("%s %s", m.spinner.View(), header)
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	counters := fmt.Sprintf("  %d/%d notes", m.processed, m.total)
	if m.cachedHits > 0 {
		counters += fmt.Sprintf(" · %d cached", m.cachedHits)
	}
	if m.fixed > 0 {
		counters += fmt.Sprintf(" · %d fixed", m.fixed)
	}
	if m.errors > 0 {
		counters += " · " + lipgloss.NewStyle().Foreground(lipgloss.Color("1")).
			Render(fmt.Sprintf("%d errors", m.errors))
	}
	b.WriteString(counters)
	b.WriteString("\n\n")

	statusWidth := 8
	nameWidth := m.width - statusWidth - 4
	if nameWidth < 20 {
		nameWidth = 20
	}
	for _, item := range m.recent {
		statusStyled := styleStatus(item.status).Render(fmt.Sprintf("%8s", item.status))
		b.WriteString(fmt.Sprintf("  %s %s\n", statusStyled, truncate(item.path, nameWidth)))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else if m.total > 0 {
		b.WriteString(m.prog.ViewAs(float64(m.processed) / float64(m.total)))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")

	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev engine.Event) tea.Cmd {
	m.stageLabel = stageLabel(ev.Stage)

	switch {
	case ev.Stage == engine.StageLint && ev.Status == engine.StatusDone:
		m.processed++
		m.push(ev.Path, "done")
	case ev.Stage == engine.StageLint && ev.Status == engine.StatusSkip:
		m.cachedHits++
	case ev.Stage == engine.StageFix && ev.Status == engine.StatusDone:
		m.fixed++
		m.push(ev.Path, "fixed")
	case ev.Status == engine.StatusError:
		m.errors++
		m.push(ev.Path, "error")
	}

	if m.total > 0 {
		return m.prog.SetPercent(float64(m.processed) / float64(m.total))
	}
	return nil
}

func (m *progressModel) push(path, status string) {
	if path == "" {
		return
	}
	m.recent = append(m.recent, recentItem{path: path, status: status})
	if len(m.recent) > recentWindow {
		m.recent = m.recent[len(m.recent)-recentWindow:]
	}
}

func stageLabel(stage engine.Stage) string {
	switch stage {
	case engine.StageScan:
		return "scanning"
	case engine.StageLint:
		return "linting"
	case engine.StageFix:
		return "fixing"
	case engine.StageLinks:
		return "updating links"
	case engine.StageFlush:
		return "flushing cache"
	default:
		return ""
	}
}

func styleStatus(status string) lipgloss.Style {
	switch status {
	case "done", "fixed":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case "error":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 {
		return value
	}
	if runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
