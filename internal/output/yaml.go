package output

import (
	"gopkg.in/yaml.v3"

	"github.com/namelens/listlens/internal/core"
	"github.com/namelens/listlens/internal/core/store"
)

// YAMLFormatter renders results as YAML documents.
type YAMLFormatter struct{}

// FormatSummary renders a run summary as YAML.
func (f *YAMLFormatter) FormatSummary(summary *RunSummary) (string, error) {
	if summary == nil {
		return "", nil
	}
	return marshalYAML(summary)
}

// FormatRuns renders stored runs as a YAML sequence.
func (f *YAMLFormatter) FormatRuns(runs []store.Run) (string, error) {
	if runs == nil {
		runs = []store.Run{}
	}
	return marshalYAML(runs)
}

// FormatResults renders one run's results as YAML.
func (f *YAMLFormatter) FormatResults(runID string, results []*core.CheckResult) (string, error) {
	if results == nil {
		results = []*core.CheckResult{}
	}
	return marshalYAML(struct {
		RunID   string              `yaml:"run_id"`
		Results []*core.CheckResult `yaml:"results"`
	}{RunID: runID, Results: results})
}

func marshalYAML(value any) (string, error) {
	data, err := yaml.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
