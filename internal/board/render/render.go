// Package render draws the board as side-by-side stage columns for a
// terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xavierca1/ligue-pipeline/internal/board"
	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

// Theme uses ANSI 256-color codes.
type Theme struct {
	Header lipgloss.Color
	Border lipgloss.Color
	Faint  lipgloss.Color
	Hover  lipgloss.Color
	Busy   lipgloss.Color

	ColumnWidth int
}

var DefaultTheme = Theme{
	Header:      lipgloss.Color("39"),
	Border:      lipgloss.Color("240"),
	Faint:       lipgloss.Color("245"),
	Hover:       lipgloss.Color("214"),
	Busy:        lipgloss.Color("203"),
	ColumnWidth: 28,
}

// View is the read side of a board.
type View interface {
	Pipelines() []entity.Pipeline
	Deleting(pipelineName, stageName string) bool
	DeletingPipeline(pipelineName string) bool
	Moving() bool
}

// Board renders every pipeline, one block per pipeline.
func Board(v View, session board.Session, theme Theme) string {
	pipelines := v.Pipelines()
	if len(pipelines) == 0 {
		return lipgloss.NewStyle().Foreground(theme.Faint).Render("No pipelines yet.")
	}

	blocks := make([]string, 0, len(pipelines))
	for _, p := range pipelines {
		blocks = append(blocks, Pipeline(v, p, session, theme))
	}
	return lipgloss.JoinVertical(lipgloss.Left, blocks...)
}

func Pipeline(v View, p entity.Pipeline, session board.Session, theme Theme) string {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Header).
		MarginTop(1)

	title := fmt.Sprintf("%s  (%d leads)", p.Name, p.LeadCount())
	if v.DeletingPipeline(p.Name) {
		title += lipgloss.NewStyle().Foreground(theme.Busy).Render("  deleting…")
	}

	columns := make([]string, 0, len(p.Stages))
	for _, st := range p.Stages {
		columns = append(columns, stageColumn(v, p.Name, st, session, theme))
	}
	if len(columns) == 0 {
		columns = append(columns, lipgloss.NewStyle().Foreground(theme.Faint).Render("no stages"))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(title),
		lipgloss.JoinHorizontal(lipgloss.Top, columns...),
	)
}

func stageColumn(v View, pipelineName string, st entity.Stage, session board.Session, theme Theme) string {
	borderColor := theme.Border
	dragging := session.Phase != board.PhaseIdle && session.Payload.Pipeline == pipelineName
	if dragging && session.Hover == st.Name {
		borderColor = theme.Hover
	}

	columnStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Width(theme.ColumnWidth).
		Padding(0, 1)

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("%s (%d)", st.Name, len(st.Leads))))
	if v.Deleting(pipelineName, st.Name) {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Busy).Render(" deleting…"))
	}
	b.WriteString("\n")

	if len(st.Leads) == 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Faint).Render("empty"))
	}
	for i, lead := range st.Leads {
		if i > 0 {
			b.WriteString("\n")
		}
		line := lead.Name
		if lead.Email != "" {
			line += " <" + lead.Email + ">"
		}
		if dragging && session.Payload.Stage == st.Name && session.Payload.LeadID == lead.ID {
			line = lipgloss.NewStyle().Foreground(theme.Faint).Italic(true).Render(line)
		}
		b.WriteString(line)
	}

	return columnStyle.Render(b.String())
}
