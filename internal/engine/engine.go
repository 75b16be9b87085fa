// Package engine orchestrates plan execution: step loading, pre and post
// hooks, sub-step dispatch and outcome aggregation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/config"
	"yqhp/stepflow/internal/hook"
	"yqhp/stepflow/internal/parser"
	"yqhp/stepflow/internal/plugin"
	"yqhp/stepflow/internal/render"
	"yqhp/stepflow/internal/report"
	"yqhp/stepflow/internal/resolver"
	"yqhp/stepflow/internal/transform"
	"yqhp/stepflow/pkg/types"
)

// Options collects the engine's collaborators. Config, Plugins, Hooks
// and Source are required; a nil Renderer or Logger gets a default.
type Options struct {
	Config    *config.Config
	Logger    *zap.Logger
	Plugins   *plugin.Registry
	Hooks     *hook.Registry
	Source    *parser.Source
	Renderer  *render.Renderer
	KeepGoing bool
}

// Engine runs execution plans against the registered plugins.
type Engine struct {
	cfg       *config.Config
	log       *zap.Logger
	printer   *report.Printer
	plugins   *plugin.Registry
	hooks     *hook.Registry
	source    *parser.Source
	resolver  *resolver.Resolver
	pipeline  *transform.Pipeline
	env       map[string]string
	keepGoing bool
}

// New creates an engine from its collaborators.
func New(opts Options) *Engine {
	renderer := opts.Renderer
	if renderer == nil {
		renderer = render.New()
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:       opts.Config,
		log:       log,
		printer:   report.NewPrinter(log),
		plugins:   opts.Plugins,
		hooks:     opts.Hooks,
		source:    opts.Source,
		resolver:  resolver.New(renderer),
		pipeline:  transform.NewPipeline(renderer),
		env:       environ(),
		keepGoing: opts.KeepGoing,
	}
}

// RunPlan executes the plan in order. An empty plan runs every
// discovered step. By default the first failing step aborts the run;
// with KeepGoing the engine finishes the plan and aggregates failures.
// FATAL errors and cancellation abort either way.
func (e *Engine) RunPlan(ctx context.Context, plan *types.ExecutionPlan, dryRun bool) ([]*types.StepOutcome, error) {
	entries := plan.Entries
	if plan.IsEmpty() {
		ids, err := e.source.Discover()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, types.NewError("no steps found in %s", e.cfg.StepsDir)
		}
		for _, id := range ids {
			entries = append(entries, types.PlanEntry{StepID: id})
		}
	}

	var outcomes []*types.StepOutcome
	var failures []error
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcome, err := e.runStep(ctx, entry, dryRun)
		if outcome != nil {
			outcomes = append(outcomes, outcome)
		}
		if err == nil {
			continue
		}
		if e.keepGoing && !types.IsFatal(err) && ctx.Err() == nil {
			e.log.Error("continuing after step failure",
				zap.String("step", entry.StepID), zap.Error(err))
			failures = append(failures, err)
			continue
		}
		return outcomes, err
	}
	if len(failures) > 0 {
		return outcomes, errors.Join(failures...)
	}
	return outcomes, nil
}

// runStep loads and executes one step. The post_run hook and the end
// banner fire whether or not the body succeeded, mirroring the start
// banner emitted up front.
func (e *Engine) runStep(ctx context.Context, entry types.PlanEntry, dryRun bool) (*types.StepOutcome, error) {
	def, err := e.source.LoadStep(entry.StepID)
	if err != nil {
		outcome := types.NewStepOutcome(entry.StepID, "")
		outcome.Fail(err)
		outcome.Finish()
		return outcome, err
	}
	e.log.Info("loaded step definition",
		zap.String("step", def.ID), zap.String("path", e.source.StepPath(def.ID)))

	outcome := types.NewStepOutcome(def.ID, def.Description)
	e.printer.StepStart(def.ID, def.Description)

	stepErr := e.runStepBody(ctx, def, entry.SubSteps, outcome, dryRun)

	if def.PostRun != "" && !dryRun {
		succeeded := stepErr == nil
		hc := &hook.Context{
			Type:      hook.TypePost,
			StepID:    def.ID,
			Config:    e.cfg.Raw(),
			Logger:    e.log,
			DryRun:    dryRun,
			Succeeded: &succeeded,
		}
		if err := e.hooks.Call(ctx, def.PostRun, hc); err != nil {
			if stepErr == nil {
				stepErr = types.NewStepError(def.ID, "", err)
			} else {
				// 步骤已失败时钩子错误只记录，不覆盖原始错误
				e.log.Error("post_run hook failed",
					zap.String("step", def.ID), zap.Error(err))
			}
		}
	}

	if stepErr != nil {
		e.log.Error(fmt.Sprintf("Step %s failed: %v", def.ID, stepErr))
		outcome.Fail(stepErr)
	}
	outcome.Finish()
	e.printer.StepEnd(def.ID, outcome.Result)
	return outcome, stepErr
}

// runStepBody runs the pre hook and the selected sub-steps over a fresh
// execution context. Outputs never survive past the step.
func (e *Engine) runStepBody(ctx context.Context, def *types.StepDefinition, requested []string, outcome *types.StepOutcome, dryRun bool) error {
	if def.PreRun != "" && !dryRun {
		hc := &hook.Context{
			Type:   hook.TypePre,
			StepID: def.ID,
			Config: e.cfg.Raw(),
			Logger: e.log,
			DryRun: dryRun,
		}
		if err := e.hooks.Call(ctx, def.PreRun, hc); err != nil {
			return types.NewStepError(def.ID, "", err)
		}
	}

	selected, err := selectSubSteps(def, requested)
	if err != nil {
		return err
	}

	execCtx := map[string]any{}
	for _, sub := range selected {
		so, err := e.runSubStep(ctx, def, sub, execCtx, dryRun)
		outcome.SubSteps = append(outcome.SubSteps, so)
		if err != nil {
			return err
		}
	}
	return nil
}

// selectSubSteps returns the sub-steps to run: the whole definition in
// order, or the requested ids in plan order.
func selectSubSteps(def *types.StepDefinition, requested []string) ([]*types.SubStepDefinition, error) {
	if len(requested) == 0 {
		selected := make([]*types.SubStepDefinition, len(def.SubSteps))
		for i := range def.SubSteps {
			selected[i] = &def.SubSteps[i]
		}
		return selected, nil
	}

	selected := make([]*types.SubStepDefinition, 0, len(requested))
	for _, id := range requested {
		sub := def.SubStep(id)
		if sub == nil {
			return nil, types.NewStepError(def.ID, id,
				types.NewError("sub-step %s.%s not found", def.ID, id))
		}
		selected = append(selected, sub)
	}
	return selected, nil
}

// environ snapshots the process environment for $VAR expansion.
func environ() map[string]string {
	pairs := os.Environ()
	env := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}
