package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/core/store"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatSummary renders a run summary as Markdown.
func (f *MarkdownFormatter) FormatSummary(summary *RunSummary) (string, error) {
	if summary == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Run %s\n\n", escapeMarkdownCell(summary.RunID)))
	sb.WriteString("| Lists | Found | No match | Errors | Limiter waits | Elapsed |\n")
	sb.WriteString("|-------|-------|----------|--------|---------------|---------|\n")
	sb.WriteString(fmt.Sprintf("| %d | %d | %d | %d | %d | %s |\n",
		summary.Total, summary.Found, summary.NoMatch, summary.Errors,
		summary.LimiterWaits, summary.Elapsed.Round(time.Millisecond)))

	sb.WriteString(fmt.Sprintf("\n**Results**: `%s`\n", summary.ResultsPath))
	sb.WriteString(fmt.Sprintf("**Error log**: `%s`\n", summary.ErrorLogPath))

	if len(summary.Failures) > 0 {
		sb.WriteString("\n### Failed lists\n\n")
		writeResultsTable(&sb, summary.Failures)
	}
	return sb.String(), nil
}

// FormatRuns renders stored runs as Markdown.
func (f *MarkdownFormatter) FormatRuns(runs []store.Run) (string, error) {
	var sb strings.Builder
	sb.WriteString("| Run | Started | Finished | Lists | Found | No match | Errors |\n")
	sb.WriteString("|-----|---------|----------|-------|-------|----------|--------|\n")
	for _, run := range runs {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %d | %d | %d | %d |\n",
			escapeMarkdownCell(run.RunID),
			run.StartedAt.Format("2006-01-02 15:04:05"),
			finishedLabel(run),
			run.Totals.Total, run.Totals.Found, run.Totals.NoMatch, run.Totals.Errors))
	}
	return sb.String(), nil
}

// FormatResults renders one run's results as Markdown.
func (f *MarkdownFormatter) FormatResults(runID string, results []*core.CheckResult) (string, error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Run %s\n\n", escapeMarkdownCell(runID)))
	writeResultsTable(&sb, results)
	return sb.String(), nil
}

func writeResultsTable(sb *strings.Builder, results []*core.CheckResult) {
	sb.WriteString("| List | List ID | Status | Notes |\n")
	sb.WriteString("|------|---------|--------|-------|\n")
	for _, r := range results {
		if r == nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
			escapeMarkdownCell(r.Target.Name),
			escapeMarkdownCell(r.Target.ListID),
			escapeMarkdownCell(statusLabel(r)),
			escapeMarkdownCell(notesLabel(r)),
		))
	}
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
