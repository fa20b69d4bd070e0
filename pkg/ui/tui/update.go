package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"lucidexport/pkg/models"
)

// Message types for the TUI

// DocumentStartedMsg is sent when a document export begins
type DocumentStartedMsg struct {
	DocumentID string
}

// DocumentResolvedMsg is sent once a document's metadata is known
type DocumentResolvedMsg struct {
	DocumentID string
	Title      string
	Pages      int
}

// PageStartedMsg is sent when a page download takes a slot
type PageStartedMsg struct {
	DocumentID string
	PageNumber int
}

// PageFinishedMsg is sent when a page download ends
type PageFinishedMsg struct {
	DocumentID string
	Outcome    models.PageOutcome
}

// DocumentFinishedMsg is sent when a document export ends
type DocumentFinishedMsg struct {
	Outcome models.DocumentOutcome
}

// RunFinishedMsg ends the program after the last document
type RunFinishedMsg struct{}

// TickMsg is sent periodically to refresh elapsed time and ETA
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = max(msg.Width/2-30, 10)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case DocumentStartedMsg:
		m.StartDocument(msg.DocumentID)
		return m, nil

	case DocumentResolvedMsg:
		m.ResolveDocument(msg.DocumentID, msg.Title, msg.Pages)
		return m, nil

	case PageStartedMsg:
		m.StartPage(msg.DocumentID)
		return m, nil

	case PageFinishedMsg:
		m.FinishPage(msg.DocumentID, msg.Outcome)
		return m, nil

	case DocumentFinishedMsg:
		m.FinishDocument(msg.Outcome)
		return m, nil

	case RunFinishedMsg:
		m.finished = true
		return m, tea.Quit
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		if m.onQuit != nil && !m.finished {
			m.onQuit()
		}
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.logMessages = nil
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
