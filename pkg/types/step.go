// Package types defines the shared data model for step definitions,
// execution plans and run results.
package types

// StepDefinition is one named unit of work: an ordered list of sub-steps
// plus optional lifecycle hooks. Definitions are loaded on demand per step
// id and treated as read-only once loaded.
type StepDefinition struct {
	// ID is assigned from the directory name at load time, not from YAML.
	ID string `yaml:"-" json:"id"`

	Description string `yaml:"description" json:"description"`

	// PreRun/PostRun name hooks in the hook registry. 钩子在步骤级别执行，
	// post_run 无论步骤成败都会运行。
	PreRun  string `yaml:"pre_run,omitempty" json:"pre_run,omitempty"`
	PostRun string `yaml:"post_run,omitempty" json:"post_run,omitempty"`

	SubSteps []SubStepDefinition `yaml:"substeps" json:"substeps"`
}

// SubStepDefinition is the atomic unit of execution: it resolves its
// params and invokes exactly one plugin.
type SubStepDefinition struct {
	// ID is unique only within the parent step.
	ID          string `yaml:"id" json:"id"`
	Description string `yaml:"description" json:"description"`
	Plugin      string `yaml:"plugin" json:"plugin"`

	// Retry is the number of additional attempts after the first failure.
	// Total attempts = Retry + 1.
	Retry int `yaml:"retry,omitempty" json:"retry,omitempty"`

	Params map[string]any `yaml:"params" json:"params"`

	// OutputKey stores the raw plugin output in the step context.
	OutputKey string `yaml:"output_key,omitempty" json:"output_key,omitempty"`

	// OutputMapping stores a transformed view of the output. OutputKey and
	// OutputMapping are independent writes; both may be present.
	OutputMapping *OutputMapping `yaml:"output_mapping,omitempty" json:"output_mapping,omitempty"`
}

// SubStep returns the sub-step with the given id, or nil.
func (s *StepDefinition) SubStep(id string) *SubStepDefinition {
	for i := range s.SubSteps {
		if s.SubSteps[i].ID == id {
			return &s.SubSteps[i]
		}
	}
	return nil
}

// OutputMapping is a declarative extract-transform-store recipe applied to
// a sub-step's raw output before it enters the step context.
type OutputMapping struct {
	// Source is an optional dot-path into the raw output. Path segments
	// address mapping keys or numeric list indexes.
	Source string `yaml:"source,omitempty" json:"source,omitempty"`

	// Transforms are textual directives folded left-to-right, e.g.
	// "filter:active==True", "map:item.name", "as:list". 指令在加载时编译一次，
	// 执行时不再重新解析。
	Transforms []string `yaml:"transforms,omitempty" json:"transforms,omitempty"`

	// Target is the context key receiving the transformed value.
	Target string `yaml:"target" json:"target"`
}
