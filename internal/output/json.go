package output

import (
	"encoding/json"

	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/core/store"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatSummary renders a run summary as JSON.
func (f *JSONFormatter) FormatSummary(summary *RunSummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	return f.marshal(summary)
}

// FormatRuns renders stored runs as a JSON array.
func (f *JSONFormatter) FormatRuns(runs []store.Run) (string, error) {
	if runs == nil {
		runs = []store.Run{}
	}
	return f.marshal(runs)
}

// FormatResults renders one run's results as JSON.
func (f *JSONFormatter) FormatResults(runID string, results []*core.CheckResult) (string, error) {
	if results == nil {
		results = []*core.CheckResult{}
	}
	return f.marshal(map[string]any{
		"run_id":  runID,
		"results": results,
	})
}

func (f *JSONFormatter) marshal(value any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(value, "", "  ")
	} else {
		data, err = json.Marshal(value)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
