package tui

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"lucidexport/pkg/models"
)

func TestModelTracksDocuments(t *testing.T) {
	model := NewModel(3, 4)

	model.StartDocument("A")
	model.StartDocument("B")
	assert.Equal(t, 1, model.Pending())
	assert.Len(t, model.ActiveDocuments(), 2)

	model.ResolveDocument("A", "Plan", 2)
	assert.Equal(t, "Plan", model.documents["A"].Title)
	assert.Equal(t, 2, model.totalPages)

	model.StartPage("A")
	model.StartPage("A")
	assert.Equal(t, 2, model.inFlight)

	model.FinishPage("A", models.PageOutcome{PageNumber: 1, Success: true, Size: 100, Started: true, Duration: time.Millisecond})
	model.FinishPage("A", models.PageOutcome{PageNumber: 2, Err: errors.New("empty response"), Started: true, Duration: time.Millisecond})
	assert.Equal(t, 0, model.inFlight)
	assert.Equal(t, 1.0, model.documents["A"].Fraction())
	assert.Equal(t, int64(100), model.totalBytes)

	model.FinishDocument(models.DocumentOutcome{DocumentID: "A", Title: "Plan"})
	model.FinishDocument(models.DocumentOutcome{DocumentID: "B", Err: errors.New("document not found")})

	finished := model.FinishedDocuments()
	require.Len(t, finished, 2)
	assert.Equal(t, DocumentCompleted, finished[0].State)
	assert.Equal(t, DocumentFailed, finished[1].State)
	assert.Empty(t, model.ActiveDocuments())
}

func TestModelSlotsIgnoreUnstartedPages(t *testing.T) {
	model := NewModel(1, 2)
	model.StartDocument("A")
	model.StartPage("A")

	// a page cancelled before it got a slot, even one with a measured duration
	model.FinishPage("A", models.PageOutcome{PageNumber: 2, Err: errors.New("context canceled"), Duration: time.Millisecond})
	assert.Equal(t, 1, model.inFlight)
}

func TestModelLogIsBounded(t *testing.T) {
	model := NewModel(1, 1)
	for i := 0; i < 80; i++ {
		model.AddLogMessage("INFO", "line")
	}
	assert.Len(t, model.logMessages, model.maxLogMessages)
	assert.Equal(t, logLevelColor("INFO"), model.logMessages[0].Color)
}

func TestModelKeys(t *testing.T) {
	quit := 0
	model := NewModel(1, 1)
	model.onQuit = func() { quit++ }

	model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("?")})
	assert.True(t, model.showHelp)

	model.AddLogMessage("INFO", "hello")
	model.Update(tea.KeyMsg{Type: tea.KeyCtrlL})
	assert.Empty(t, model.logMessages)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Equal(t, 1, quit)
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestModelView(t *testing.T) {
	model := NewModel(2, 4)
	assert.Equal(t, "Initializing...", model.View())

	model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	model.StartDocument("A")
	model.ResolveDocument("A", "Architecture", 3)
	model.StartPage("A")

	view := model.View()
	assert.Contains(t, view, "Architecture")
	assert.Contains(t, view, "DOWNLOAD SLOTS")
	assert.Contains(t, view, "1/4")
}

func TestTUIRunsUntilFinished(t *testing.T) {
	ui := New(1, 2, WithIO(strings.NewReader(""), io.Discard))

	go func() {
		ui.DocumentStarted("A")
		ui.DocumentResolved("A", "Plan", 1)
		ui.PageStarted("A", 1)
		ui.PageFinished("A", models.PageOutcome{PageNumber: 1, Success: true, Size: 10, Started: true, Duration: time.Millisecond})
		ui.DocumentFinished(models.DocumentOutcome{DocumentID: "A", Title: "Plan"})
		ui.Finish()
	}()

	done := make(chan error, 1)
	go func() { done <- ui.Start() }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		ui.Stop()
		t.Fatal("program did not exit after Finish")
	}

	assert.True(t, ui.model.finished)
	assert.Equal(t, 1, ui.model.donePages)
	assert.Equal(t, DocumentCompleted, ui.model.documents["A"].State)
}
