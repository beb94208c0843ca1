// ABOUTME: Bubbletea model for the session monitor
// ABOUTME: Polls session counters on a tick and renders buffer fill and glitch counts
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/Resonate-Protocol/pcmbridge/pkg/audio"
	"github.com/Resonate-Protocol/pcmbridge/pkg/audio/device"
	"github.com/Resonate-Protocol/pcmbridge/pkg/stream"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
)

// RefreshInterval is how often the monitor samples session counters
const RefreshInterval = 100 * time.Millisecond

// Session is the part of a stream session the monitor reads
type Session interface {
	ID() uuid.UUID
	Format() audio.Format
	Direction() device.Direction
	Stats() stream.Stats
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	warnStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("220"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	session Session
	title   string
	started time.Time
	now     time.Time

	stats stream.Stats

	showDebug bool
	quitting  bool
	quit      chan<- struct{}

	width  int
	height int
}

type tickMsg time.Time

// StatsMsg replaces the displayed counters
type StatsMsg stream.Stats

// NewModel creates a monitor for s. title labels what is playing or
// recording. quit, when non-nil, is signalled when the user quits.
func NewModel(s Session, title string, quit chan<- struct{}) Model {
	now := time.Now()
	return Model{
		session: s,
		title:   title,
		started: now,
		now:     now,
		quit:    quit,
	}
}

// Init starts the refresh tick
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(RefreshInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		m.now = time.Time(msg)
		if m.session != nil {
			m.stats = m.session.Stats()
		}
		return m, tick()
	case StatsMsg:
		m.stats = stream.Stats(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		if m.quit != nil {
			select {
			case m.quit <- struct{}{}:
			default:
			}
		}
		return m, tea.Quit
	case "d":
		m.showDebug = !m.showDebug
	}
	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping session...\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("pcmbridge"))
	b.WriteString("\n\n")

	if m.session != nil {
		field(&b, "Session", m.session.ID().String())
		field(&b, "Direction", m.session.Direction().String())
		field(&b, "Format", m.session.Format().String())
	}
	field(&b, "Source", m.title)
	field(&b, "State", m.stats.State.String())
	field(&b, "Elapsed", m.now.Sub(m.started).Round(time.Second).String())
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Buffer: "))
	b.WriteString(fmt.Sprintf("[%s] %d/%d frames",
		renderBar(m.stats.Buffered, m.stats.Capacity, 20), m.stats.Buffered, m.stats.Capacity))
	b.WriteString("\n")

	field(&b, "Frames", fmt.Sprintf("in %d  out %d", m.stats.FramesIn, m.stats.FramesOut))
	b.WriteString(headerStyle.Render("Glitches: "))
	glitches := fmt.Sprintf("overrun %d  underrun %d", m.stats.Overruns, m.stats.Underruns)
	if m.stats.Overruns > 0 || m.stats.Underruns > 0 {
		b.WriteString(warnStyle.Render(glitches))
	} else {
		b.WriteString(valueStyle.Render(glitches))
	}
	b.WriteString("\n")

	if m.showDebug {
		b.WriteString("\n")
		field(&b, "Fill", fmt.Sprintf("%.1f%%", fillPercent(m.stats)))
		field(&b, "Window", fmt.Sprintf("%dx%d", m.width, m.height))
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("d: debug  q/ctrl+c: quit"))
	return b.String()
}

func field(b *strings.Builder, name, value string) {
	b.WriteString(headerStyle.Render(name + ": "))
	b.WriteString(valueStyle.Render(value))
	b.WriteString("\n")
}

func fillPercent(s stream.Stats) float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Buffered) * 100 / float64(s.Capacity)
}

func renderBar(value, total, width int) string {
	filled := 0
	if total > 0 {
		filled = min(value*width/total, width)
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
