package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"lucidexport/pkg/models"
)

// RenderSummary renders a per-document results table followed by totals
func RenderSummary(outcomes []models.DocumentOutcome) string {
	_, _, _, s := snapshot()
	return renderSummary(outcomes, s)
}

func renderSummary(outcomes []models.DocumentOutcome, s styles) string {
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		title := o.Title
		if title == "" {
			title = "-"
		}
		var status string
		switch {
		case o.Err != nil:
			status = "failed: " + shorten(o.Err.Error(), 60)
		case len(o.FailedPages()) > 0:
			status = fmt.Sprintf("%d page(s) failed", len(o.FailedPages()))
		default:
			status = "ok"
		}
		rows = append(rows, []string{
			o.DocumentID,
			title,
			fmt.Sprintf("%d/%d", o.ExportedPages(), len(o.Pages)),
			FormatDuration(o.Duration),
			status,
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(s.border).
		Headers("DOCUMENT", "TITLE", "PAGES", "TIME", "STATUS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.label.Padding(0, 1)
			}
			if col == 4 && row >= 0 && row < len(rows) {
				if rows[row][4] == "ok" {
					return s.success.Padding(0, 1)
				}
				return s.failure.Padding(0, 1)
			}
			return s.cell
		})

	totals := models.Summarize(outcomes)
	var b strings.Builder
	b.WriteString(t.String())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%s %d/%d documents, %d/%d pages, %s\n",
		s.title.Render("TOTAL"),
		totals.Documents-totals.FailedDocuments,
		totals.Documents,
		totals.Pages-totals.FailedPages,
		totals.Pages,
		FormatBytes(totals.Bytes),
	))
	return b.String()
}

// PrintSummary writes the summary table unless in quiet mode
func PrintSummary(outcomes []models.DocumentOutcome) {
	out, _, quiet, s := snapshot()
	if quiet {
		return
	}
	fmt.Fprint(out, renderSummary(outcomes, s))
}

func shorten(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
