package types

import "time"

// RunResult is the outcome tag recorded per step and per sub-step.
type RunResult string

const (
	// ResultOK indicates the unit completed without error.
	ResultOK RunResult = "OK"
	// ResultError indicates the unit failed.
	ResultError RunResult = "ERROR"
)

// SubStepOutcome records one sub-step execution.
// 推荐使用 NewSubStepOutcome 创建，用 defer outcome.Finish() 收尾。
type SubStepOutcome struct {
	StepID    string        `json:"step_id"`
	SubStepID string        `json:"substep_id"`
	Result    RunResult     `json:"result"`
	Attempts  int           `json:"attempts"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
	ErrorMsg  string        `json:"error,omitempty"`
}

// NewSubStepOutcome creates an outcome in the OK state.
func NewSubStepOutcome(stepID, subStepID string) *SubStepOutcome {
	return &SubStepOutcome{
		StepID:    stepID,
		SubStepID: subStepID,
		Result:    ResultOK,
		StartTime: time.Now(),
	}
}

// Fail marks the sub-step as failed.
func (o *SubStepOutcome) Fail(err error) {
	o.Result = ResultError
	o.Err = err
	if err != nil {
		o.ErrorMsg = err.Error()
	}
}

// Finish sets the duration. Usually deferred right after creation.
func (o *SubStepOutcome) Finish() {
	o.Duration = time.Since(o.StartTime)
}

// StepOutcome records one step execution with its sub-step outcomes.
type StepOutcome struct {
	StepID      string            `json:"step_id"`
	Description string            `json:"description,omitempty"`
	Result      RunResult         `json:"result"`
	StartTime   time.Time         `json:"start_time"`
	Duration    time.Duration     `json:"duration"`
	SubSteps    []*SubStepOutcome `json:"substeps,omitempty"`
	ErrorMsg    string            `json:"error,omitempty"`
}

// NewStepOutcome creates a step outcome in the OK state.
func NewStepOutcome(stepID, description string) *StepOutcome {
	return &StepOutcome{
		StepID:      stepID,
		Description: description,
		Result:      ResultOK,
		StartTime:   time.Now(),
	}
}

// Fail marks the step as failed.
func (o *StepOutcome) Fail(err error) {
	o.Result = ResultError
	if err != nil {
		o.ErrorMsg = err.Error()
	}
}

// Finish sets the duration.
func (o *StepOutcome) Finish() {
	o.Duration = time.Since(o.StartTime)
}

// IsSuccess reports whether the step completed without error.
func (o *StepOutcome) IsSuccess() bool {
	return o.Result == ResultOK
}
