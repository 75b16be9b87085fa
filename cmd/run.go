package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/stepflow/internal/engine"
	"yqhp/stepflow/internal/hook"
	"yqhp/stepflow/internal/parser"
	"yqhp/stepflow/internal/pidlock"
	"yqhp/stepflow/internal/report"
	"yqhp/stepflow/internal/validate"
)

var (
	// run 命令的 flags
	runStepsFlag  string
	runDryRun     bool
	runVars       []string
	runKeepGoing  bool
	runReportPath string
)

var runCmd = &cobra.Command{
	Use:   "run [steps...]",
	Short: "Execute steps",
	Long: `Execute steps from the configured steps directory.

The plan is a comma-separated list of entries. A bare step id runs every
sub-step of that step; "id:sub" runs a single sub-step. Without a plan
every discovered step runs in numeric order.`,
	Example: `  # run every discovered step
  stepflow run --config config.yaml

  # run steps 1 and 3, then sub-steps 1 and 4 of step 2
  stepflow run --config config.yaml --steps "1,3,2:1,2:4"

  # plan entries as positional arguments
  stepflow run --config config.yaml 1 3 2:1

  # resolve parameters but skip plugin execution
  stepflow run --config config.yaml --dry-run --steps 1

  # override config values for one run
  stepflow run --config config.yaml --var env=staging --var retries=2 1`,
	RunE: executeRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runStepsFlag, "steps", "", "steps to execute (comma-separated: 1,2,2:1)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "resolve parameters but skip plugin execution")
	runCmd.Flags().StringArrayVar(&runVars, "var", nil, "config override KEY=VALUE (repeatable, dots nest)")
	runCmd.Flags().BoolVar(&runKeepGoing, "keep-going", false, "continue with later steps after a non-fatal step failure")
	runCmd.Flags().StringVar(&runReportPath, "report", "", "write a JSON run summary to this path")
}

func executeRun(cmd *cobra.Command, args []string) error {
	start := time.Now()

	rt, err := setup(runVars)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	// 同一台机器上同时只允许一个实例
	lock, err := pidlock.Acquire(rt.cfg.LockPath())
	if err != nil {
		return err
	}
	defer lock.Release()

	hooks := hook.NewRegistry()
	if rt.cfg.HooksDir != "" {
		if err := hook.LoadScripts(hooks, rt.cfg.HooksDir); err != nil {
			return err
		}
	}

	plan, err := parser.ParsePlan(planString(runStepsFlag, args))
	if err != nil {
		return err
	}

	// Validation phase: every problem surfaces before any side effect.
	findings := validate.New(rt.cfg, rt.plugins, rt.source).ValidatePlan(plan)
	logFindings(rt.log, findings)
	if len(findings.Blocking(false)) > 0 {
		rt.log.Error("Validation failed")
		exitCode = 1
		return nil
	}
	rt.log.Info("Validation successful")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var interrupted atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		interrupted.Store(true)
		rt.log.Error("Execution interrupted by user.")
		cancel()
	}()

	eng := engine.New(engine.Options{
		Config:    rt.cfg,
		Logger:    rt.log,
		Plugins:   rt.plugins,
		Hooks:     hooks,
		Source:    rt.source,
		Renderer:  rt.renderer,
		KeepGoing: runKeepGoing,
	})
	outcomes, runErr := eng.RunPlan(ctx, plan, runDryRun)

	rc := 0
	if runErr != nil {
		rc = 1
	}
	if interrupted.Load() {
		rc = 130
	}

	report.NewPrinter(rt.log).Global(rc, time.Since(start))

	if runReportPath != "" {
		summary := report.NewSummary(plan, runDryRun)
		summary.Finish(outcomes, rc)
		if err := summary.WriteFile(runReportPath); err != nil {
			rt.log.Error("failed to write run report", zap.Error(err))
			if rc == 0 {
				rc = 1
			}
		} else {
			rt.log.Info("run report written", zap.String("path", runReportPath))
		}
	}

	exitCode = rc
	return nil
}

// planString merges the --steps flag with positional plan tokens.
func planString(flagValue string, args []string) string {
	tokens := make([]string, 0, len(args)+1)
	if strings.TrimSpace(flagValue) != "" {
		tokens = append(tokens, flagValue)
	}
	tokens = append(tokens, args...)
	return strings.Join(tokens, ",")
}
