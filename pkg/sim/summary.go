package sim

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jwebster45206/tribute-engine/pkg/roster"
)

// FormatSummary renders the final results as a table: tribute, kills and
// either the day of death or Survivor.
func FormatSummary(rows []roster.SummaryRow) string {
	data := make([][]string, 0, len(rows))
	for _, r := range rows {
		data = append(data, []string{r.Name, strconv.Itoa(r.Kills), r.Fate()})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderHeader(true).
		Headers("Tribute", "Kills", "Fate").
		Rows(data...)
	return t.Render()
}
