package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yqhp/stepflow/pkg/types"
)

func newCapturedPrinter() (*Printer, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
		zapcore.AddSync(&buf),
		zapcore.InfoLevel,
	)
	return NewPrinter(zap.New(core)), &buf
}

func TestPrinter_StepBanners(t *testing.T) {
	p, buf := newCapturedPrinter()

	p.StepStart("7", "Deploy the release")
	out := buf.String()
	assert.Contains(t, out, "ACTION RUNNING:")
	assert.Contains(t, out, "STEP   : [7] Deploy the release")
	assert.Contains(t, out, starRule)

	buf.Reset()
	p.StepEnd("7", types.ResultOK)
	out = buf.String()
	assert.Contains(t, out, "STEP   : [7] - RESULT : OK")
	assert.Contains(t, out, eqRule)
}

func TestPrinter_SubStepBanners(t *testing.T) {
	p, buf := newCapturedPrinter()

	p.SubStepStart("7", "2", "Upload artifacts")
	out := buf.String()
	assert.Contains(t, out, "## STEP 7:2 - Upload artifacts")
	assert.Contains(t, out, dashRule)

	buf.Reset()
	p.SubStepEnd("7", "2", types.ResultError)
	assert.Contains(t, buf.String(), "## STEP 7:2 - Result: ERROR")
}

func TestPrinter_Global(t *testing.T) {
	p, buf := newCapturedPrinter()

	p.Global(0, 1500*time.Millisecond)
	out := buf.String()
	assert.Contains(t, out, "GLOBAL RESULT: SUCCESS (RC: 0)")
	assert.Contains(t, out, "Total Elapsed Time: 1.5s")

	buf.Reset()
	p.Global(1, 80*time.Millisecond)
	assert.Contains(t, buf.String(), "GLOBAL RESULT: FAILURE (RC: 1)")
}
