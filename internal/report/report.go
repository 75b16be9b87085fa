// Package report emits the operator-facing run telemetry: the step and
// sub-step banners and the machine-readable run summary.
package report

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"yqhp/stepflow/pkg/types"
)

const bannerWidth = 74

var (
	starRule = strings.Repeat("*", bannerWidth)
	eqRule   = strings.Repeat("=", bannerWidth)
	dashRule = strings.Repeat("-", bannerWidth)
)

// Printer writes banners through the run logger so they land on the
// console and in every log sink.
type Printer struct {
	log *zap.Logger
}

// NewPrinter creates a banner printer.
func NewPrinter(log *zap.Logger) *Printer {
	return &Printer{log: log}
}

// StepStart announces a step before its first sub-step runs.
func (p *Printer) StepStart(stepID, description string) {
	p.log.Info(fmt.Sprintf("\n%s\n  ACTION RUNNING:\n  STEP   : [%s] %s\n%s\n",
		starRule, stepID, description, starRule))
}

// StepEnd reports the step result, OK or ERROR.
func (p *Printer) StepEnd(stepID string, result types.RunResult) {
	p.log.Info(fmt.Sprintf("\n%s\n  STEP   : [%s] - RESULT : %s\n%s\n",
		eqRule, stepID, result, eqRule))
}

// SubStepStart announces a sub-step.
func (p *Printer) SubStepStart(stepID, subStepID, description string) {
	p.log.Info(fmt.Sprintf("\n%s\n## STEP %s:%s - %s\n%s\n",
		dashRule, stepID, subStepID, description, dashRule))
}

// SubStepEnd reports the sub-step result.
func (p *Printer) SubStepEnd(stepID, subStepID string, result types.RunResult) {
	p.log.Info(fmt.Sprintf("\n%s\n## STEP %s:%s - Result: %s\n%s\n",
		dashRule, stepID, subStepID, result, dashRule))
}

// Global closes the run with the overall status, return code and elapsed
// time.
func (p *Printer) Global(rc int, elapsed time.Duration) {
	status := "SUCCESS"
	if rc != 0 {
		status = "FAILURE"
	}
	p.log.Info(fmt.Sprintf("\n%s\nGLOBAL RESULT: %s (RC: %d)\nTotal Elapsed Time: %s\n%s\n",
		starRule, status, rc, elapsed.Round(time.Millisecond), starRule))
}
