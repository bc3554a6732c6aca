package console

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// PanelWidth is the wrapping width of rendered panels.
const PanelWidth = 100

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("10")).
			Padding(0, 1).
			Width(PanelWidth)
	keyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	statusColor = color.New(color.FgBlue)
	errorColor  = color.New(color.FgRed)
	promptColor = color.New(color.FgBlue, color.Bold)
)

// Title renders a bold heading line.
func Title(s string) string {
	return titleStyle.Render(s)
}

// Dim renders secondary text.
func Dim(s string) string {
	return dimStyle.Render(s)
}

// Panel renders body inside a rounded box headed by title.
func Panel(title, body string) string {
	return titleStyle.Render(title) + "\n" + panelStyle.Render(strings.TrimSpace(body))
}

// Prompt is the label shown before user input.
func Prompt() string {
	return promptColor.Sprint("You: ")
}

// Status writes a progress line.
func Status(w io.Writer, format string, a ...any) {
	_, _ = statusColor.Fprintf(w, format+"\n", a...)
}

// Error writes an error line.
func Error(w io.Writer, format string, a ...any) {
	_, _ = errorColor.Fprintf(w, format+"\n", a...)
}

// Verdict labels an evaluation outcome.
func Verdict(pass bool) string {
	if pass {
		return color.GreenString("PASS")
	}
	return color.RedString("FAIL")
}

// Row is one line of a summary table.
type Row struct {
	Key   string
	Value string
}

// Summary renders rows as an aligned two-column table inside a panel.
func Summary(title string, rows []Row) string {
	width := 0
	for _, r := range rows {
		width = max(width, lipgloss.Width(r.Key))
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		pad := strings.Repeat(" ", width-lipgloss.Width(r.Key))
		lines = append(lines, fmt.Sprintf("%s%s  %s", keyStyle.Render(r.Key), pad, r.Value))
	}
	box := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	return titleStyle.Render(title) + "\n" + box.Render(strings.Join(lines, "\n"))
}
