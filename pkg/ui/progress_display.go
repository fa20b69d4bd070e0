package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"lucidexport/pkg/models"
)

const barWidth = 20

// ProgressDisplay shows a single progress line for a run. In verbose mode it
// prints one line per finished page instead. It is safe for concurrent use.
type ProgressDisplay struct {
	mu         sync.Mutex
	out        io.Writer
	styles     styles
	enabled    bool
	verbose    bool
	startTime  time.Time
	documents  int
	resolved   int
	finished   int
	totalPages int
	donePages  int
	failed     int
	bytes      int64
	current    string
}

// NewProgressDisplay creates a progress display for a run of n documents.
// Nothing is printed in quiet mode.
func NewProgressDisplay(documents int, verbose bool) *ProgressDisplay {
	out, _, quiet, s := snapshot()
	return &ProgressDisplay{
		out:       out,
		styles:    s,
		enabled:   !quiet,
		verbose:   verbose,
		startTime: time.Now(),
		documents: documents,
	}
}

func (p *ProgressDisplay) DocumentStarted(string) {}

// DocumentResolved adds the document's pages to the total
func (p *ProgressDisplay) DocumentResolved(documentID, title string, pageCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.resolved++
	p.totalPages += pageCount
	if p.verbose && p.enabled {
		fmt.Fprintf(p.out, "%s %s %s\n",
			p.styles.highlight.Render("→"),
			p.styles.label.Render(title),
			p.styles.dim.Render(fmt.Sprintf("(%s, %d pages)", documentID, pageCount)))
	}
}

func (p *ProgressDisplay) PageStarted(string, int) {}

// PageFinished records one page
func (p *ProgressDisplay) PageFinished(documentID string, outcome models.PageOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.donePages++
	p.current = outcome.PageTitle
	if outcome.Success {
		p.bytes += outcome.Size
	} else {
		p.failed++
	}

	if !p.enabled {
		return
	}
	if p.verbose {
		p.printPage(documentID, outcome)
		return
	}
	p.printProgress()
}

// DocumentFinished records one document
func (p *ProgressDisplay) DocumentFinished(outcome models.DocumentOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.finished++
	if outcome.Err != nil && p.enabled {
		p.clearLine()
		fmt.Fprintf(p.out, "%s %s: %v\n", p.styles.failure.Render("✗"), outcome.DocumentID, outcome.Err)
	}
}

// Complete ends the progress line
func (p *ProgressDisplay) Complete() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.enabled || p.verbose {
		return
	}
	p.printProgress()
	fmt.Fprintln(p.out)
}

func (p *ProgressDisplay) printPage(documentID string, outcome models.PageOutcome) {
	if outcome.Success {
		fmt.Fprintf(p.out, "%s %s • %s\n",
			p.styles.success.Render("✓"),
			outcome.Path,
			p.styles.dim.Render(FormatBytes(outcome.Size)))
		return
	}
	fmt.Fprintf(p.out, "%s %s page %d %q: %v\n",
		p.styles.failure.Render("✗"), documentID, outcome.PageNumber, outcome.PageTitle, outcome.Err)
}

// line renders the progress line without writing it
func (p *ProgressDisplay) line() string {
	progress := 0.0
	if p.totalPages > 0 {
		progress = float64(p.donePages) / float64(p.totalPages)
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * barWidth)
	bar := p.styles.bar.Render(strings.Repeat("━", filled)) +
		p.styles.barEmpty.Render(strings.Repeat("─", barWidth-filled))

	line := fmt.Sprintf("[%s] %d/%d pages • %d/%d documents • %s • %s",
		bar,
		p.donePages,
		p.totalPages,
		p.finished,
		p.documents,
		FormatBytes(p.bytes),
		FormatDuration(time.Since(p.startTime)),
	)
	if p.failed > 0 {
		line += " • " + p.styles.failure.Render(fmt.Sprintf("%d failed", p.failed))
	}
	return line
}

func (p *ProgressDisplay) printProgress() {
	p.clearLine()
	fmt.Fprint(p.out, p.line())
}

func (p *ProgressDisplay) clearLine() {
	if p.verbose {
		return
	}
	fmt.Fprintf(p.out, "\r%s\r", strings.Repeat(" ", 120))
}
