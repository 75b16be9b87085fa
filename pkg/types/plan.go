package types

// PlanEntry selects one step and optionally a single sub-step within it.
// An empty SubSteps slice selects every sub-step of the step.
type PlanEntry struct {
	StepID   string
	SubSteps []string
}

// ExecutionPlan is the ordered list of steps requested for one run. It is
// built once from the CLI selection (or discovery) and read-only afterward.
type ExecutionPlan struct {
	Entries []PlanEntry
}

// IsEmpty reports whether no step was selected explicitly.
func (p *ExecutionPlan) IsEmpty() bool {
	return p == nil || len(p.Entries) == 0
}

// StepIDs returns the requested step ids in plan order.
func (p *ExecutionPlan) StepIDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, 0, len(p.Entries))
	for _, e := range p.Entries {
		ids = append(ids, e.StepID)
	}
	return ids
}
