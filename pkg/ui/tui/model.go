package tui

import (
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"lucidexport/pkg/models"
)

// DocumentState is where a document is in its export
type DocumentState int

const (
	DocumentPending DocumentState = iota
	DocumentActive
	DocumentCompleted
	DocumentFailed
)

// DocumentItem is one document's progress
type DocumentItem struct {
	ID          string
	Title       string
	Pages       int
	DonePages   int
	FailedPages int
	Bytes       int64
	State       DocumentState
	StartTime   time.Time
	Err         error
}

// Fraction returns the share of pages finished, successful or not
func (d *DocumentItem) Fraction() float64 {
	if d.Pages == 0 {
		if d.State == DocumentCompleted || d.State == DocumentFailed {
			return 1
		}
		return 0
	}
	return float64(d.DonePages+d.FailedPages) / float64(d.Pages)
}

// LogMessage is one entry of the log panel
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// Model is the bubbletea model of an export run. It is only touched from
// the program's event loop, so it needs no locking.
type Model struct {
	spinner spinner.Model
	bar     progress.Model

	documents     map[string]*DocumentItem
	documentOrder []string
	expected      int

	capacity int
	inFlight int

	totalPages  int
	donePages   int
	failedPages int
	totalBytes  int64
	startTime   time.Time
	finished    bool

	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	onQuit func()
}

// NewModel creates a model for a run of documents sharing capacity download slots
func NewModel(documents, capacity int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	return Model{
		spinner:        s,
		bar:            progress.New(progress.WithDefaultGradient()),
		documents:      make(map[string]*DocumentItem),
		expected:       documents,
		capacity:       capacity,
		startTime:      time.Now(),
		maxLogMessages: 50,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *Model) item(id string) *DocumentItem {
	d, ok := m.documents[id]
	if !ok {
		d = &DocumentItem{ID: id, Title: id}
		m.documents[id] = d
		m.documentOrder = append(m.documentOrder, id)
	}
	return d
}

// StartDocument registers a document before its metadata is known
func (m *Model) StartDocument(id string) {
	d := m.item(id)
	d.State = DocumentActive
	d.StartTime = time.Now()
}

// ResolveDocument records the document's title and page count
func (m *Model) ResolveDocument(id, title string, pages int) {
	d := m.item(id)
	if title != "" {
		d.Title = title
	}
	d.Pages = pages
	m.totalPages += pages
	m.AddLogMessage("INFO", "Exporting "+d.Title)
}

// StartPage takes a download slot
func (m *Model) StartPage(string) {
	m.inFlight++
}

// FinishPage releases the slot, if the page ever took one, and counts the page
func (m *Model) FinishPage(id string, outcome models.PageOutcome) {
	if outcome.Started && m.inFlight > 0 {
		m.inFlight--
	}

	d := m.item(id)
	if outcome.Success {
		d.DonePages++
		d.Bytes += outcome.Size
		m.donePages++
		m.totalBytes += outcome.Size
		return
	}

	d.FailedPages++
	m.failedPages++
	m.AddLogMessage("ERROR", d.Title+" page "+strconv.Itoa(outcome.PageNumber)+": "+outcome.ErrorMessage())
}

// FinishDocument marks the document completed or failed
func (m *Model) FinishDocument(outcome models.DocumentOutcome) {
	d := m.item(outcome.DocumentID)
	if outcome.Title != "" {
		d.Title = outcome.Title
	}
	if outcome.Err != nil {
		d.State = DocumentFailed
		d.Err = outcome.Err
		m.AddLogMessage("ERROR", d.Title+": "+outcome.Err.Error())
		return
	}

	d.State = DocumentCompleted
	if d.FailedPages > 0 {
		m.AddLogMessage("WARN", d.Title+": "+strconv.Itoa(d.FailedPages)+" page(s) failed")
	} else {
		m.AddLogMessage("SUCCESS", "Exported "+d.Title)
	}
}

// AddLogMessage appends to the log panel, keeping the most recent entries
func (m *Model) AddLogMessage(level, message string) {
	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   logLevelColor(level),
	})
	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

func (m *Model) documentsIn(state DocumentState) []*DocumentItem {
	var out []*DocumentItem
	for _, id := range m.documentOrder {
		if d := m.documents[id]; d.State == state {
			out = append(out, d)
		}
	}
	return out
}

// ActiveDocuments returns the documents currently exporting, in start order
func (m *Model) ActiveDocuments() []*DocumentItem {
	return m.documentsIn(DocumentActive)
}

// FinishedDocuments returns completed and failed documents, in start order
func (m *Model) FinishedDocuments() []*DocumentItem {
	var out []*DocumentItem
	for _, id := range m.documentOrder {
		if d := m.documents[id]; d.State == DocumentCompleted || d.State == DocumentFailed {
			out = append(out, d)
		}
	}
	return out
}

// Pending returns how many documents have not started yet
func (m *Model) Pending() int {
	if n := m.expected - len(m.documentOrder); n > 0 {
		return n
	}
	return 0
}

// ETA estimates the remaining time from the average page rate so far
func (m *Model) ETA() time.Duration {
	finished := m.donePages + m.failedPages
	remaining := m.totalPages - finished
	if finished == 0 || remaining <= 0 {
		return 0
	}
	perPage := time.Since(m.startTime) / time.Duration(finished)
	return perPage * time.Duration(remaining)
}
