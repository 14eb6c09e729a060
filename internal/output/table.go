package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/core/store"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatSummary renders totals and any failed lists.
func (f *TableFormatter) FormatSummary(summary *RunSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Run " + summary.RunID)
	t.AppendHeader(table.Row{"Lists", "Found", "No match", "Errors", "Limiter waits", "Elapsed"})
	t.AppendRow(table.Row{
		summary.Total,
		summary.Found,
		summary.NoMatch,
		summary.Errors,
		summary.LimiterWaits,
		summary.Elapsed.Round(time.Millisecond).String(),
	})
	if summary.RowWarnings > 0 {
		t.AppendFooter(table.Row{fmt.Sprintf("%d rows without ListId", summary.RowWarnings), "", "", "", "", ""})
	}

	var sb strings.Builder
	sb.WriteString(t.Render())
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Results:   %s\n", summary.ResultsPath))
	sb.WriteString(fmt.Sprintf("Error log: %s\n", summary.ErrorLogPath))

	if len(summary.Failures) > 0 {
		sb.WriteString("\n")
		sb.WriteString(f.resultsTable("Failed lists", summary.Failures))
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

// FormatRuns renders stored runs, newest first.
func (f *TableFormatter) FormatRuns(runs []store.Run) (string, error) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Run", "Started", "Finished", "Lists", "Found", "No match", "Errors"})
	for _, run := range runs {
		t.AppendRow(table.Row{
			run.RunID,
			run.StartedAt.Format("2006-01-02 15:04:05"),
			finishedLabel(run),
			run.Totals.Total,
			run.Totals.Found,
			run.Totals.NoMatch,
			run.Totals.Errors,
		})
	}
	if len(runs) == 0 {
		t.AppendFooter(table.Row{"no runs recorded", "", "", "", "", "", ""})
	}
	return t.Render(), nil
}

// FormatResults renders the stored results of one run.
func (f *TableFormatter) FormatResults(runID string, results []*core.CheckResult) (string, error) {
	return f.resultsTable("Run "+runID, results), nil
}

func (f *TableFormatter) resultsTable(title string, results []*core.CheckResult) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row{"List", "List ID", "Status", "Notes"})
	for _, r := range results {
		if r == nil {
			continue
		}
		t.AppendRow(table.Row{r.Target.Name, r.Target.ListID, statusLabel(r), notesLabel(r)})
	}
	return t.Render()
}
