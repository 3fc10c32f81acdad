package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/kris-hansen/docsquad/utils/pipeline"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle   = lipgloss.NewStyle().Faint(true)
	valueStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("34")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Bold(true)
	summaryBox   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

// Styler renders CLI output, plain when colors are off
type Styler struct {
	useColors bool
}

// NewStyler honors NO_COLOR and dumb terminals
func NewStyler() *Styler {
	useColors := os.Getenv("NO_COLOR") == "" && os.Getenv("TERM") != "dumb"
	return &Styler{useColors: useColors}
}

func (s *Styler) render(style lipgloss.Style, text string) string {
	if !s.useColors {
		return text
	}
	return style.Render(text)
}

// Summary describes a finished run
func (s *Styler) Summary(outcome *pipeline.Outcome) string {
	rows := [][2]string{
		{"Run", outcome.RunID},
		{"Source", outcome.FileReference.DisplayName},
		{"File URI", outcome.FileReference.URI},
		{"Checksum", outcome.FileReference.Checksum},
		{"Document", outcome.OutputPath},
	}

	var b strings.Builder
	b.WriteString(s.render(titleStyle, "Documentation generated"))
	for _, row := range rows {
		if row[1] == "" {
			continue
		}
		b.WriteString("\n")
		b.WriteString(s.render(labelStyle, fmt.Sprintf("%-9s", row[0])))
		b.WriteString(" ")
		b.WriteString(s.render(valueStyle, row[1]))
	}

	if !s.useColors {
		return b.String()
	}
	return summaryBox.Render(b.String())
}

// Evaluation renders a judge's score and summary
func (s *Styler) Evaluation(ev *pipeline.Evaluation) string {
	var b strings.Builder
	b.WriteString(s.render(titleStyle, "Evaluation"))
	b.WriteString("\n")
	b.WriteString(s.render(labelStyle, fmt.Sprintf("%-9s", "Score")))
	b.WriteString(" ")
	b.WriteString(s.render(valueStyle, fmt.Sprintf("%d/100", ev.Score)))
	if ev.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(ev.Summary)
	}
	return b.String()
}

// Success formats a confirmation line
func (s *Styler) Success(text string) string {
	return s.render(successStyle, "✓ "+text)
}

// Failure formats an error line
func (s *Styler) Failure(err error) string {
	return s.render(errorStyle, "✗ "+err.Error())
}
