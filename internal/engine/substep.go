package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
	"yqhp/stepflow/internal/transform"
	"yqhp/stepflow/pkg/types"
)

// runSubStep resolves parameters, dispatches the plugin with retries and
// stores outputs into the step context. Every failure path is wrapped
// with the step and sub-step identity; the end banner always fires.
func (e *Engine) runSubStep(ctx context.Context, def *types.StepDefinition, sub *types.SubStepDefinition, execCtx map[string]any, dryRun bool) (*types.SubStepOutcome, error) {
	so := types.NewSubStepOutcome(def.ID, sub.ID)
	e.printer.SubStepStart(def.ID, sub.ID, sub.Description)
	defer func() {
		so.Finish()
		e.printer.SubStepEnd(def.ID, sub.ID, so.Result)
	}()

	fail := func(err error) (*types.SubStepOutcome, error) {
		wrapped := types.NewStepError(def.ID, sub.ID, err)
		e.log.Error(fmt.Sprintf("Sub-step %s.%s failed: %v", def.ID, sub.ID, err))
		so.Fail(wrapped)
		return so, wrapped
	}

	// Mapping directives are compiled before the first attempt so a bad
	// transform never costs a plugin invocation.
	var compiled *transform.Compiled
	if sub.OutputMapping != nil {
		var err error
		compiled, err = transform.Compile(sub.OutputMapping)
		if err != nil {
			return fail(err)
		}
	}

	params, err := e.resolver.Resolve(sub.Params, e.cfg.Raw(), execCtx, e.env)
	if err != nil {
		return fail(err)
	}

	if dryRun {
		e.log.Info(fmt.Sprintf("[DRY-RUN] Sub-step %s.%s skipped", def.ID, sub.ID))
		return so, nil
	}

	p, err := e.plugins.Lookup(sub.Plugin)
	if err != nil {
		return fail(types.WrapFatal(err, "dispatching sub-step"))
	}

	output, attempts, err := e.invoke(ctx, def, sub, p, params)
	so.Attempts = attempts
	if err != nil {
		return fail(err)
	}

	if sub.OutputKey != "" && output != nil {
		execCtx[sub.OutputKey] = output
	}
	if compiled != nil {
		mapped, err := e.pipeline.Apply(output, compiled, e.cfg.Raw(), execCtx)
		if err != nil {
			return fail(err)
		}
		execCtx[compiled.Target] = mapped
	}
	return so, nil
}

// invoke runs the plugin up to retry+1 times. Non-final failures log a
// warning and retry immediately; the final attempt's error propagates.
// The second return value is the number of attempts actually made.
func (e *Engine) invoke(ctx context.Context, def *types.StepDefinition, sub *types.SubStepDefinition, p plugin.Plugin, params map[string]any) (any, int, error) {
	attempts := maxAttempts(sub.Retry)
	req := &plugin.Request{
		Params: params,
		Logger: e.log.With(
			zap.String("step", def.ID),
			zap.String("substep", sub.ID),
			zap.String("plugin", sub.Plugin),
		),
	}

	var output any
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}
		output, lastErr = p.Execute(ctx, req)
		if lastErr == nil {
			return output, attempt, nil
		}
		if attempt < attempts {
			e.log.Warn(fmt.Sprintf("Retry %d/%d for sub-step %s.%s: %v",
				attempt, attempts, def.ID, sub.ID, lastErr))
		}
	}
	return nil, attempts, lastErr
}

// maxAttempts clamps a retry count to at least one attempt.
func maxAttempts(retry int) int {
	if retry < 0 {
		retry = 0
	}
	return retry + 1
}
