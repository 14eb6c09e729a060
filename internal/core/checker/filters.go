package checker

import "fmt"

// DefaultMaxFilterDepth bounds how deep filter branches may nest.
const DefaultMaxFilterDepth = 32

const filterTypeProperty = "PROPERTY"

// FilterBranch is a HubSpot list filter group. Branches nest arbitrarily.
type FilterBranch struct {
	FilterBranchType     string          `json:"filterBranchType,omitempty"`
	FilterBranchOperator string          `json:"filterBranchOperator,omitempty"`
	Filters              []Filter        `json:"filters,omitempty"`
	FilterBranches       []*FilterBranch `json:"filterBranches,omitempty"`
}

// Filter is a single condition. Property holds the internal property name,
// which is the durable key; labels are not part of the payload.
type Filter struct {
	FilterType string `json:"filterType"`
	Property   string `json:"property,omitempty"`
}

// ErrFilterTooDeep reports a filter tree nested beyond the configured depth.
type ErrFilterTooDeep struct {
	MaxDepth int
}

func (e *ErrFilterTooDeep) Error() string {
	return fmt.Sprintf("filter branches nested deeper than %d levels", e.MaxDepth)
}

// CollectProperties walks the branch tree with an explicit stack and returns
// every distinct property referenced by a PROPERTY filter.
func CollectProperties(root *FilterBranch, maxDepth int) (map[string]struct{}, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxFilterDepth
	}

	found := make(map[string]struct{})
	if root == nil {
		return found, nil
	}

	type frame struct {
		branch *FilterBranch
		depth  int
	}

	stack := []frame{{branch: root, depth: 1}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.depth > maxDepth {
			return nil, &ErrFilterTooDeep{MaxDepth: maxDepth}
		}

		for _, filter := range top.branch.Filters {
			if filter.FilterType != filterTypeProperty || filter.Property == "" {
				continue
			}
			found[filter.Property] = struct{}{}
		}

		for _, child := range top.branch.FilterBranches {
			if child == nil {
				continue
			}
			stack = append(stack, frame{branch: child, depth: top.depth + 1})
		}
	}

	return found, nil
}
