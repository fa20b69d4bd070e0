package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"lucidexport/pkg/ui"
)

// View renders the whole screen
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	columnWidth := (m.width - 4) / 2

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderStatsPanel(columnWidth),
		m.renderActivePanel(columnWidth),
		m.renderFinishedPanel(columnWidth),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderSlotsPanel(columnWidth),
		m.renderLogsPanel(columnWidth),
	)

	sections := []string{
		m.renderHeader(),
		lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right),
	}
	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to stop"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderHeader() string {
	status := m.spinner.View() + " exporting"
	if m.finished {
		status = successStyle.Render("done")
	}
	return headerStyle.Width(m.width).Render("LUCID EXPORT  " + status)
}

func panel(width int, title string, lines ...string) string {
	return panelStyle.Width(width).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(" " + title + " ")}, lines...)...),
	)
}

func stat(label, value string) string {
	return statsLabelStyle.Render(label) + " " + statsValueStyle.Render(value)
}

func (m *Model) renderStatsPanel(width int) string {
	finished := len(m.FinishedDocuments())
	eta := "--"
	if d := m.ETA(); d > 0 {
		eta = ui.FormatDuration(d)
	}
	lines := []string{
		stat("Elapsed:", ui.FormatDuration(time.Since(m.startTime))),
		stat("Documents:", fmt.Sprintf("%d/%d", finished, m.expected)),
		stat("Pages:", fmt.Sprintf("%d/%d", m.donePages+m.failedPages, m.totalPages)),
		stat("Written:", ui.FormatBytes(m.totalBytes)),
		stat("ETA:", eta),
	}
	if m.failedPages > 0 {
		lines = append(lines, errorStyle.Render(fmt.Sprintf("%d page(s) failed", m.failedPages)))
	}
	return panel(width, "RUN", lines...)
}

func (m *Model) renderActivePanel(width int) string {
	active := m.ActiveDocuments()
	if len(active) == 0 {
		return panel(width, "ACTIVE", dimStyle.Render("No active documents"))
	}

	var lines []string
	for _, d := range active {
		info := fmt.Sprintf("%s %s",
			itemActiveStyle.Render(truncate(d.Title, width-20)),
			dimStyle.Render(fmt.Sprintf("%d/%d", d.DonePages+d.FailedPages, d.Pages)),
		)
		lines = append(lines, info, m.bar.ViewAs(d.Fraction()))
	}
	return panel(width, "ACTIVE", lines...)
}

func (m *Model) renderFinishedPanel(width int) string {
	var lines []string
	if pending := m.Pending(); pending > 0 {
		lines = append(lines, warningStyle.Render(fmt.Sprintf("%d pending", pending)))
	}

	finished := m.FinishedDocuments()
	start := max(len(finished)-5, 0)
	for _, d := range finished[start:] {
		switch {
		case d.State == DocumentFailed:
			lines = append(lines, errorStyle.Render("✗ "+truncate(d.Title, width-8)))
		case d.FailedPages > 0:
			lines = append(lines, warningStyle.Render(fmt.Sprintf("! %s (%d failed)", truncate(d.Title, width-20), d.FailedPages)))
		default:
			lines = append(lines, itemDoneStyle.Render("✓ "+truncate(d.Title, width-8)))
		}
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("Nothing finished yet"))
	}
	return panel(width, "FINISHED", lines...)
}

// renderSlotsPanel shows how much of the shared download capacity is in use
func (m *Model) renderSlotsPanel(width int) string {
	usage := 0.0
	if m.capacity > 0 {
		usage = float64(m.inFlight) / float64(m.capacity) * 100
	}

	barWidth := max(width-8, 1)
	filled := min(int(usage*float64(barWidth)/100), barWidth)
	style := slotsStyle(usage)
	bar := style.Render(strings.Repeat("█", filled)) +
		slotsEmptyStyle.Render(strings.Repeat("░", barWidth-filled))

	return panel(width, "DOWNLOAD SLOTS",
		stat("In flight:", fmt.Sprintf("%d/%d", m.inFlight, m.capacity)),
		bar,
	)
}

func (m *Model) renderLogsPanel(width int) string {
	start := max(len(m.logMessages)-10, 0)

	var lines []string
	for _, entry := range m.logMessages[start:] {
		timestamp := logTimestampStyle.Render(entry.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(entry.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", entry.Level))
		lines = append(lines, timestamp+" "+level+" "+truncate(entry.Message, width-25))
	}
	if len(lines) == 0 {
		lines = append(lines, dimStyle.Render("No logs yet..."))
	}

	return panelStyle.Width(width).Height(max(m.height-20, 5)).Render(
		lipgloss.JoinVertical(lipgloss.Left, append([]string{titleStyle.Render(" LOG ")}, lines...)...),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q, ctrl+c - Stop the export (unfinished pages are recorded as failed)
    ctrl+l    - Clear the log panel
    ?         - Toggle this help

  Documents:
    ` + successStyle.Render("✓") + ` exported    ` + warningStyle.Render("!") + ` some pages failed    ` + errorStyle.Render("✗") + ` failed
`
	return panelStyle.Width(m.width).Render(help)
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
