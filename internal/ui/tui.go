// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program for the session monitor
package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Monitor runs the session monitor in the terminal
type Monitor struct {
	program *tea.Program
	quit    chan struct{}
}

// NewMonitor creates a monitor for s
func NewMonitor(s Session, title string) *Monitor {
	quit := make(chan struct{}, 1)
	return &Monitor{
		program: tea.NewProgram(NewModel(s, title, quit), tea.WithAltScreen()),
		quit:    quit,
	}
}

// Run blocks until the user quits or Stop is called
func (m *Monitor) Run() error {
	_, err := m.program.Run()
	return err
}

// Stop ends the program
func (m *Monitor) Stop() {
	m.program.Quit()
}

// QuitChan signals when the user asked to quit
func (m *Monitor) QuitChan() <-chan struct{} {
	return m.quit
}
