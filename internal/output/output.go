package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/core/store"
)

// Format represents an output format.
type Format string

const (
	FormatTable    Format = "table"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatYAML     Format = "yaml"
)

// RunSummary describes a finished run for terminal output.
type RunSummary struct {
	RunID        string              `json:"run_id" yaml:"run_id"`
	StartedAt    time.Time           `json:"started_at" yaml:"started_at"`
	Elapsed      time.Duration       `json:"elapsed" yaml:"elapsed"`
	Total        int                 `json:"total" yaml:"total"`
	Found        int                 `json:"found" yaml:"found"`
	NoMatch      int                 `json:"no_match" yaml:"no_match"`
	Errors       int                 `json:"errors" yaml:"errors"`
	RowWarnings  int                 `json:"row_warnings,omitempty" yaml:"row_warnings,omitempty"`
	LimiterWaits int64               `json:"limiter_waits" yaml:"limiter_waits"`
	Properties   []string            `json:"properties" yaml:"properties"`
	ResultsPath  string              `json:"results_path" yaml:"results_path"`
	ErrorLogPath string              `json:"error_log_path" yaml:"error_log_path"`
	Failures     []*core.CheckResult `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Formatter renders run summaries and stored history.
type Formatter interface {
	FormatSummary(summary *RunSummary) (string, error)
	FormatRuns(runs []store.Run) (string, error)
	FormatResults(runID string, results []*core.CheckResult) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatTable):
		return FormatTable, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatYAML), "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatMarkdown:
		return &MarkdownFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TableFormatter{}
	}
}

func statusLabel(result *core.CheckResult) string {
	if result == nil {
		return ""
	}
	switch result.Status {
	case core.StatusFound:
		return "found"
	case core.StatusNoMatch:
		return "no match"
	case core.StatusError:
		if result.StatusCode > 0 {
			return fmt.Sprintf("error (%d)", result.StatusCode)
		}
		return "error"
	default:
		return string(result.Status)
	}
}

func notesLabel(result *core.CheckResult) string {
	if result == nil {
		return ""
	}
	if result.IsError() {
		return truncate(result.Message, 80)
	}
	return strings.Join(result.Matched, ", ")
}

func finishedLabel(run store.Run) string {
	if run.FinishedAt == nil {
		return "incomplete"
	}
	return run.FinishedAt.Format(time.RFC3339)
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
