package cmd

import (
	"github.com/spf13/cobra"

	"yqhp/stepflow/internal/parser"
	"yqhp/stepflow/internal/validate"
)

var (
	validateStrict    bool
	validateStepsFlag string
	validateVars      []string
)

var validateCmd = &cobra.Command{
	Use:   "validate [steps...]",
	Short: "Validate step definitions without executing them",
	Long: `Validate the configuration and step definitions. Without a plan every
discovered step is checked. ERROR and FATAL findings always fail
validation; WARN findings fail it only with --strict.`,
	Example: `  stepflow validate --config config.yaml
  stepflow validate --config config.yaml --strict
  stepflow validate --config config.yaml --steps "1,2:3"`,
	RunE: executeValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateStrict, "strict", false, "treat warnings as errors")
	validateCmd.Flags().StringVar(&validateStepsFlag, "steps", "", "restrict validation to these plan entries")
	validateCmd.Flags().StringArrayVar(&validateVars, "var", nil, "config override KEY=VALUE (repeatable)")
}

func executeValidate(cmd *cobra.Command, args []string) error {
	rt, err := setup(validateVars)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	plan, err := parser.ParsePlan(planString(validateStepsFlag, args))
	if err != nil {
		return err
	}

	findings := validate.New(rt.cfg, rt.plugins, rt.source).ValidatePlan(plan)
	logFindings(rt.log, findings)
	if !findings.OK(validateStrict) {
		rt.log.Error("Validation failed")
		exitCode = 1
		return nil
	}
	rt.log.Info("Validation successful")
	return nil
}
