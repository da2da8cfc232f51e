package termui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/fyrsmithlabs/kirod/internal/dashboard"
)

const progressWidth = 20

var columns = []string{"Feature", "Phase", "Current Task", "Progress", "", "Last Updated"}

const phaseColumn = 1

// newBar returns the progress bar used in the table.
func newBar(width int) progress.Model {
	return progress.New(
		progress.WithGradient("#00ffff", "#00ff00"),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
}

// RenderTable renders rows as a bordered table with a progress bar for
// every feature that has a task list.
func RenderTable(rows []dashboard.Row, loc *time.Location) string {
	if len(rows) == 0 {
		return dimStyle.Render(dashboard.NoFeaturesMessage)
	}

	bar := newBar(progressWidth)
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		graph := ""
		if r.Progress != nil {
			graph = bar.ViewAs(r.Progress.Ratio())
		}
		data = append(data, []string{
			r.Feature,
			string(r.Phase),
			r.CurrentTaskText(),
			r.ProgressText(),
			graph,
			r.LastUpdatedText(loc),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(columns...).
		Rows(data...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			if col == phaseColumn && row >= 0 && row < len(data) {
				if c, ok := phaseColors[data[row][phaseColumn]]; ok {
					return cellStyle.Foreground(c)
				}
			}
			return cellStyle
		})

	return t.String()
}

// Overall returns the share of done tasks across every row with progress.
func Overall(rows []dashboard.Row) float64 {
	var done, total int
	for _, r := range rows {
		if r.Progress != nil {
			done += r.Progress.Done
			total += r.Progress.Total
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total)
}
