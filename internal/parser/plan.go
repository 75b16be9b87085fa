package parser

import (
	"strings"

	"yqhp/stepflow/pkg/types"
)

// ParsePlan turns a selection string such as "1,2,2:1" into an ordered
// execution plan. A bare token runs the whole step; "id:sub" runs a single
// sub-step. Repeating a targeted step merges its sub-step list; repeating
// a full step is an authoring error.
func ParsePlan(s string) (*types.ExecutionPlan, error) {
	plan := &types.ExecutionPlan{}
	if strings.TrimSpace(s) == "" {
		return plan, nil
	}

	index := make(map[string]int)
	for _, token := range strings.Split(s, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			return nil, types.NewFatal("empty entry in plan %q", s)
		}

		stepID, subID, targeted := strings.Cut(token, ":")
		stepID = strings.TrimSpace(stepID)
		if stepID == "" {
			return nil, types.NewFatal("plan entry %q has no step id", token)
		}
		if targeted {
			subID = strings.TrimSpace(subID)
			if subID == "" || strings.Contains(subID, ":") {
				return nil, types.NewFatal("malformed plan entry %q, want id or id:sub", token)
			}
		}

		pos, seen := index[stepID]
		if !seen {
			entry := types.PlanEntry{StepID: stepID}
			if targeted {
				entry.SubSteps = []string{subID}
			}
			index[stepID] = len(plan.Entries)
			plan.Entries = append(plan.Entries, entry)
			continue
		}

		prev := &plan.Entries[pos]
		if !targeted || len(prev.SubSteps) == 0 {
			return nil, types.NewFatal("step %s listed twice in plan %q", stepID, s)
		}
		for _, existing := range prev.SubSteps {
			if existing == subID {
				return nil, types.NewFatal("sub-step %s:%s listed twice in plan %q", stepID, subID, s)
			}
		}
		prev.SubSteps = append(prev.SubSteps, subID)
	}
	return plan, nil
}
