package report

import (
	"os"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"yqhp/stepflow/pkg/types"
)

// Summary is the machine-readable record of one run, written when the
// operator passes --report.
type Summary struct {
	RunID      string               `json:"run_id"`
	StartedAt  time.Time            `json:"started_at"`
	FinishedAt time.Time            `json:"finished_at"`
	ElapsedMS  int64                `json:"elapsed_ms"`
	Result     types.RunResult      `json:"result"`
	RC         int                  `json:"rc"`
	DryRun     bool                 `json:"dry_run"`
	Plan       []string             `json:"plan"`
	Steps      []*types.StepOutcome `json:"steps"`
}

// NewSummary starts a summary for a run over the given plan.
func NewSummary(plan *types.ExecutionPlan, dryRun bool) *Summary {
	return &Summary{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
		Result:    types.ResultOK,
		DryRun:    dryRun,
		Plan:      plan.StepIDs(),
	}
}

// Finish closes the summary with the collected outcomes.
func (s *Summary) Finish(steps []*types.StepOutcome, rc int) {
	s.FinishedAt = time.Now()
	s.ElapsedMS = s.FinishedAt.Sub(s.StartedAt).Milliseconds()
	s.Steps = steps
	s.RC = rc
	if rc != 0 {
		s.Result = types.ResultError
	}
}

// WriteFile serializes the summary as indented JSON at path.
func (s *Summary) WriteFile(path string) error {
	data, err := sonic.ConfigDefault.MarshalIndent(s, "", "  ")
	if err != nil {
		return types.WrapError(err, "serializing run summary")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return types.WrapError(err, "writing run summary %s", path)
	}
	return nil
}
