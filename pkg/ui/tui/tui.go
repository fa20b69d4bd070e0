package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"lucidexport/pkg/models"
)

// TUI is a full-screen progress view of an export run. It satisfies the
// exporter's Observer interface; events are forwarded to the bubbletea
// program and applied on its event loop.
type TUI struct {
	program *tea.Program
	model   *Model
}

// Option configures a TUI
type Option func(*options)

type options struct {
	onQuit    func()
	ctx       context.Context
	input     io.Reader
	output    io.Writer
	altScreen bool
}

// WithOnQuit sets the function called when the user quits before the run
// ends, usually a context cancel.
func WithOnQuit(fn func()) Option {
	return func(o *options) { o.onQuit = fn }
}

// WithContext stops the program when ctx is done
func WithContext(ctx context.Context) Option {
	return func(o *options) { o.ctx = ctx }
}

// WithIO replaces the terminal with the given reader and writer and
// disables the alternate screen.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(o *options) {
		o.input = in
		o.output = out
		o.altScreen = false
	}
}

// New creates a TUI for a run of documents sharing capacity download slots
func New(documents, capacity int, opts ...Option) *TUI {
	o := options{altScreen: true}
	for _, opt := range opts {
		opt(&o)
	}

	model := NewModel(documents, capacity)
	model.onQuit = o.onQuit

	var programOpts []tea.ProgramOption
	if o.altScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	if o.ctx != nil {
		programOpts = append(programOpts, tea.WithContext(o.ctx))
	}
	if o.input != nil {
		programOpts = append(programOpts, tea.WithInput(o.input))
	}
	if o.output != nil {
		programOpts = append(programOpts, tea.WithOutput(o.output))
	}

	return &TUI{
		program: tea.NewProgram(&model, programOpts...),
		model:   &model,
	}
}

// Start runs the program until the run finishes, the user quits or the
// context given with WithContext is done.
func (t *TUI) Start() error {
	if _, err := t.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("terminal UI failed: %w", err)
	}
	return nil
}

// Finish tells the program the run is over; it exits on its own after that
func (t *TUI) Finish() {
	t.program.Send(RunFinishedMsg{})
}

// Stop ends the program immediately
func (t *TUI) Stop() {
	t.program.Quit()
}

func (t *TUI) DocumentStarted(documentID string) {
	t.program.Send(DocumentStartedMsg{DocumentID: documentID})
}

func (t *TUI) DocumentResolved(documentID, title string, pageCount int) {
	t.program.Send(DocumentResolvedMsg{DocumentID: documentID, Title: title, Pages: pageCount})
}

func (t *TUI) PageStarted(documentID string, pageNumber int) {
	t.program.Send(PageStartedMsg{DocumentID: documentID, PageNumber: pageNumber})
}

func (t *TUI) PageFinished(documentID string, outcome models.PageOutcome) {
	t.program.Send(PageFinishedMsg{DocumentID: documentID, Outcome: outcome})
}

func (t *TUI) DocumentFinished(outcome models.DocumentOutcome) {
	t.program.Send(DocumentFinishedMsg{Outcome: outcome})
}
