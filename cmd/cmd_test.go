package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetCLI zeroes the package-level flag state before and after a test
// so invocations do not leak into each other.
func resetCLI(t *testing.T) {
	t.Helper()
	zero := func() {
		cfgFile, debug, quiet, exitCode = "", false, false, 0
		runStepsFlag, runDryRun, runVars, runKeepGoing, runReportPath = "", false, nil, false, ""
		validateStrict, validateStepsFlag, validateVars = false, "", nil
	}
	zero()
	t.Cleanup(zero)
}

func writeCLIConfig(t *testing.T, stepsDir string) string {
	t.Helper()
	dir := t.TempDir()
	content := fmt.Sprintf(`app_name: stepflow-cli-test
steps_dir: %s
log_dir: %s
temp_dir: %s
log_level: ERROR
`, stepsDir, filepath.Join(dir, "logs"), filepath.Join(dir, "tmp"))

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func writeCLIStep(t *testing.T, stepsDir, id, content string) {
	t.Helper()
	dir := filepath.Join(stepsDir, "step"+id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "step"+id+".yaml"), []byte(content), 0o644))
}

const cliStepYAML = `description: Emit a greeting
substeps:
  - id: 1
    description: Echo
    plugin: local_command
    params:
      command: echo cli-test
`

func TestPlanString(t *testing.T) {
	assert.Equal(t, "1,2:1", planString("1,2:1", nil))
	assert.Equal(t, "1,3", planString("", []string{"1", "3"}))
	assert.Equal(t, "1,2,3:1", planString("1,2", []string{"3:1"}))
	assert.Equal(t, "", planString("  ", nil))
}

func TestRootCommand_Subcommands(t *testing.T) {
	var names []string
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "run")
	assert.Contains(t, names, "validate")
	assert.Contains(t, names, "list")
	assert.Contains(t, names, "plugins")
}

func TestSetup_RequiresConfig(t *testing.T) {
	resetCLI(t)

	_, err := setup(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing --config")
}

func TestSetup_BuildsRuntime(t *testing.T) {
	resetCLI(t)
	cfgFile = writeCLIConfig(t, t.TempDir())
	quiet = true

	rt, err := setup(nil)
	require.NoError(t, err)
	defer rt.log.Sync()

	assert.Equal(t, 14, rt.plugins.Count())
	assert.NotNil(t, rt.source)
	assert.NotNil(t, rt.renderer)
	assert.DirExists(t, rt.cfg.LogDir)
}

func TestRunCommand_EndToEnd(t *testing.T) {
	resetCLI(t)
	stepsDir := t.TempDir()
	writeCLIStep(t, stepsDir, "1", cliStepYAML)
	reportPath := filepath.Join(t.TempDir(), "run.json")

	rootCmd.SetArgs([]string{
		"run", "--config", writeCLIConfig(t, stepsDir),
		"--steps", "1", "--report", reportPath, "-q",
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 0, exitCode)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var summary map[string]any
	require.NoError(t, sonic.Unmarshal(data, &summary))
	assert.Equal(t, "OK", summary["result"])
	assert.Equal(t, []any{"1"}, summary["plan"])
}

func TestRunCommand_RuntimeFailureSetsExitCode(t *testing.T) {
	resetCLI(t)
	stepsDir := t.TempDir()
	writeCLIStep(t, stepsDir, "1", `description: Read a file that is not there
substeps:
  - id: 1
    description: Doomed read
    plugin: read_file_content
    params:
      file_path: /nonexistent/stepflow-cli-test
`)

	rootCmd.SetArgs([]string{"run", "--config", writeCLIConfig(t, stepsDir), "--steps", "1", "-q"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 1, exitCode)
}

func TestRunCommand_ValidationBlocksExecution(t *testing.T) {
	resetCLI(t)
	stepsDir := t.TempDir()
	canary := filepath.Join(t.TempDir(), "canary.txt")
	writeCLIStep(t, stepsDir, "1", fmt.Sprintf(`description: Missing required parameter
substeps:
  - id: 1
    description: No command given
    plugin: local_command
    params:
      timeout: 5
  - id: 2
    description: Would write a file
    plugin: write_file_content
    params:
      file_path: %s
      content: ran anyway
`, canary))

	rootCmd.SetArgs([]string{"run", "--config", writeCLIConfig(t, stepsDir), "--steps", "1", "-q"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 1, exitCode)
	assert.NoFileExists(t, canary)
}

func TestValidateCommand_CleanStep(t *testing.T) {
	resetCLI(t)
	stepsDir := t.TempDir()
	writeCLIStep(t, stepsDir, "1", cliStepYAML)

	rootCmd.SetArgs([]string{"validate", "--config", writeCLIConfig(t, stepsDir), "-q"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 0, exitCode)
}

func TestValidateCommand_FailsOnBrokenStep(t *testing.T) {
	resetCLI(t)
	stepsDir := t.TempDir()
	writeCLIStep(t, stepsDir, "1", `description: Unknown plugin
substeps:
  - id: 1
    description: Dispatch to nowhere
    plugin: no_such_plugin
    params: {}
`)

	rootCmd.SetArgs([]string{"validate", "--config", writeCLIConfig(t, stepsDir), "-q"})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, 1, exitCode)
}
