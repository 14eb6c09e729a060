package core

import (
	"sort"
	"strings"
	"time"
)

// ListTarget identifies a remote list to check.
type ListTarget struct {
	Name   string `json:"name" yaml:"name"`
	ListID string `json:"list_id" yaml:"list_id"`
}

// Status represents the outcome of a list check.
type Status string

const (
	StatusFound   Status = "found"
	StatusNoMatch Status = "no_match"
	StatusError   Status = "error"
)

// Provenance captures metadata about how a check was resolved.
type Provenance struct {
	CheckID     string    `json:"check_id" yaml:"check_id"`
	RunID       string    `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	RequestedAt time.Time `json:"requested_at" yaml:"requested_at"`
	ResolvedAt  time.Time `json:"resolved_at" yaml:"resolved_at"`
	Source      string    `json:"source" yaml:"source"`
	Server      string    `json:"server,omitempty" yaml:"server,omitempty"`
	ToolVersion string    `json:"tool_version,omitempty" yaml:"tool_version,omitempty"`
}

// CheckResult reports which tracked properties a list's filters reference.
type CheckResult struct {
	Target     ListTarget `json:"target" yaml:"target"`
	Status     Status     `json:"status" yaml:"status"`
	Matched    []string   `json:"matched,omitempty" yaml:"matched,omitempty"`
	StatusCode int        `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Message    string     `json:"message,omitempty" yaml:"message,omitempty"`
	ErrorKind  string     `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	Provenance Provenance `json:"provenance" yaml:"provenance"`
}

// IsError reports whether the check failed.
func (r *CheckResult) IsError() bool {
	return r != nil && r.Status == StatusError
}

// HasMatch reports whether the named property was matched.
func (r *CheckResult) HasMatch(property string) bool {
	if r == nil {
		return false
	}
	for _, matched := range r.Matched {
		if matched == property {
			return true
		}
	}
	return false
}

// PropertySet is the ordered, deduplicated set of tracked property names.
// It is read-only once built.
type PropertySet struct {
	names []string
	index map[string]struct{}
}

// NewPropertySet builds a set preserving first-seen order. Blank names are skipped.
func NewPropertySet(names []string) PropertySet {
	set := PropertySet{
		names: make([]string, 0, len(names)),
		index: make(map[string]struct{}, len(names)),
	}
	for _, raw := range names {
		name := strings.TrimSpace(raw)
		if name == "" {
			continue
		}
		if _, ok := set.index[name]; ok {
			continue
		}
		set.index[name] = struct{}{}
		set.names = append(set.names, name)
	}
	return set
}

// Names returns the properties in configuration order.
func (p PropertySet) Names() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Len returns the number of tracked properties.
func (p PropertySet) Len() int {
	return len(p.names)
}

// Contains reports an exact, case-sensitive membership match.
func (p PropertySet) Contains(name string) bool {
	_, ok := p.index[name]
	return ok
}

// Intersect returns the tracked properties present in found, in configuration order.
func (p PropertySet) Intersect(found map[string]struct{}) []string {
	matched := make([]string, 0)
	for _, name := range p.names {
		if _, ok := found[name]; ok {
			matched = append(matched, name)
		}
	}
	return matched
}

// SortResults orders results by list id, then name. Used where stable output is wanted.
func SortResults(results []*CheckResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Target.ListID != b.Target.ListID {
			return a.Target.ListID < b.Target.ListID
		}
		return a.Target.Name < b.Target.Name
	})
}
