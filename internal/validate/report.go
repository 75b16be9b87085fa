package validate

import "fmt"

// Level grades a finding. WARN findings block only in strict mode.
type Level string

const (
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
	LevelFatal Level = "FATAL"
)

// Finding is one validation problem tied to a step or sub-step.
type Finding struct {
	Level     Level
	StepID    string
	SubStepID string
	Message   string
}

func (f Finding) String() string {
	switch {
	case f.SubStepID != "":
		return fmt.Sprintf("[%s] step %s.%s: %s", f.Level, f.StepID, f.SubStepID, f.Message)
	case f.StepID != "":
		return fmt.Sprintf("[%s] step %s: %s", f.Level, f.StepID, f.Message)
	}
	return fmt.Sprintf("[%s] %s", f.Level, f.Message)
}

// Report accumulates findings across a whole plan so the operator sees
// every problem in one pass instead of fixing them one by one.
type Report struct {
	Findings []Finding
}

func (r *Report) addf(level Level, stepID, subStepID, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{
		Level:     level,
		StepID:    stepID,
		SubStepID: subStepID,
		Message:   fmt.Sprintf(format, args...),
	})
}

// Blocking returns the findings that prevent execution: ERROR and FATAL
// always, WARN too when strict.
func (r *Report) Blocking(strict bool) []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Level != LevelWarn || strict {
			out = append(out, f)
		}
	}
	return out
}

// OK reports whether the plan may execute.
func (r *Report) OK(strict bool) bool {
	return len(r.Blocking(strict)) == 0
}

// Warnings returns the WARN-level findings.
func (r *Report) Warnings() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Level == LevelWarn {
			out = append(out, f)
		}
	}
	return out
}
