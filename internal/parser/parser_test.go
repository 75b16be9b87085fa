package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/stepflow/internal/render"
	"yqhp/stepflow/pkg/types"
)

const sampleStepYAML = `description: "Back up {{ config.app }} data"
pre_run: backup_check
substeps:
  - id: "1"
    description: Dump the database
    plugin: local_command
    retry: 2
    params:
      command: pg_dump mydb
    output_key: dump
  - id: "2"
    description: Upload the dump
    plugin: s3_upload
    params:
      bucket: backups
    output_mapping:
      source: etag
      transforms: ["as:string"]
      target: upload_etag
`

func writeStep(t *testing.T, dir, id, content string) {
	t.Helper()
	stepDir := filepath.Join(dir, "step"+id)
	require.NoError(t, os.MkdirAll(stepDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(stepDir, "step"+id+".yaml"), []byte(content), 0o644))
}

func newTestSource(t *testing.T, config map[string]any) (*Source, string) {
	t.Helper()
	dir := t.TempDir()
	return NewSource(dir, render.New(), config), dir
}

func TestSource_LoadStep(t *testing.T) {
	source, dir := newTestSource(t, map[string]any{"app": "stepflow"})
	writeStep(t, dir, "7", sampleStepYAML)

	def, err := source.LoadStep("7")

	require.NoError(t, err)
	assert.Equal(t, "7", def.ID)
	assert.Equal(t, "Back up stepflow data", def.Description)
	assert.Equal(t, "backup_check", def.PreRun)
	require.Len(t, def.SubSteps, 2)

	first := def.SubSteps[0]
	assert.Equal(t, "1", first.ID)
	assert.Equal(t, "local_command", first.Plugin)
	assert.Equal(t, 2, first.Retry)
	assert.Equal(t, "dump", first.OutputKey)
	assert.Equal(t, "pg_dump mydb", first.Params["command"])

	second := def.SubSteps[1]
	require.NotNil(t, second.OutputMapping)
	assert.Equal(t, "etag", second.OutputMapping.Source)
	assert.Equal(t, "upload_etag", second.OutputMapping.Target)
}

func TestSource_LoadStep_NotFound(t *testing.T) {
	source, _ := newTestSource(t, nil)

	_, err := source.LoadStep("99")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStepNotFound)
	assert.True(t, types.IsFatal(err))
}

func TestSource_LoadStep_UnknownFieldRejected(t *testing.T) {
	source, dir := newTestSource(t, nil)
	writeStep(t, dir, "1", "description: x\nsubsteps: []\nbogus_field: true\n")

	_, err := source.LoadStep("1")

	require.Error(t, err)
	assert.True(t, types.IsFatal(err))
	assert.Contains(t, err.Error(), "bogus_field")
}

func TestSource_LoadStep_BadDescriptionTemplate(t *testing.T) {
	source, dir := newTestSource(t, nil)
	writeStep(t, dir, "1", "description: '{{ confg.app }}'\nsubsteps: []\n")

	_, err := source.LoadStep("1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "step 1 description")
}

func TestSource_LoadStep_ParamsNotRendered(t *testing.T) {
	source, dir := newTestSource(t, map[string]any{"app": "stepflow"})
	writeStep(t, dir, "1", `description: x
substeps:
  - id: "1"
    description: y
    plugin: local_command
    params:
      command: "echo {{ config.app }}"
`)

	def, err := source.LoadStep("1")

	require.NoError(t, err)
	// Params carry their template text until the resolver runs them.
	assert.Equal(t, "echo {{ config.app }}", def.SubSteps[0].Params["command"])
}

func TestSource_StepPathAndExists(t *testing.T) {
	source, dir := newTestSource(t, nil)
	writeStep(t, dir, "3", sampleStepYAML)

	assert.Equal(t, filepath.Join(dir, "step3", "step3.yaml"), source.StepPath("3"))
	assert.True(t, source.Exists("3"))
	assert.False(t, source.Exists("4"))
}

func TestSource_Discover(t *testing.T) {
	source, dir := newTestSource(t, nil)
	writeStep(t, dir, "10", sampleStepYAML)
	writeStep(t, dir, "2", sampleStepYAML)
	writeStep(t, dir, "1", sampleStepYAML)
	// Directories without a definition file are skipped.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "step5"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "notastep"), 0o755))

	ids, err := source.Discover()

	require.NoError(t, err)
	assert.Equal(t, []string{"1", "10", "2"}, ids)
}

func TestParsePlan(t *testing.T) {
	plan, err := ParsePlan("1,2,2:1")

	require.NoError(t, err)
	require.Len(t, plan.Entries, 3)
	assert.Equal(t, types.PlanEntry{StepID: "1"}, plan.Entries[0])
	assert.Equal(t, types.PlanEntry{StepID: "2"}, plan.Entries[1])
	assert.Equal(t, types.PlanEntry{StepID: "2", SubSteps: []string{"1"}}, plan.Entries[2])
}

func TestParsePlan_Empty(t *testing.T) {
	plan, err := ParsePlan("")

	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())

	plan, err = ParsePlan("   ")
	require.NoError(t, err)
	assert.True(t, plan.IsEmpty())
}

func TestParsePlan_TargetedMerge(t *testing.T) {
	plan, err := ParsePlan("2:1,2:3")

	require.NoError(t, err)
	require.Len(t, plan.Entries, 1)
	assert.Equal(t, []string{"1", "3"}, plan.Entries[0].SubSteps)
}

func TestParsePlan_Rejections(t *testing.T) {
	tests := []struct {
		plan string
		want string
	}{
		{"1,1", "listed twice"},
		{"2:1,2:1", "sub-step 2:1 listed twice"},
		{"2,2:1", "listed twice"},
		{"1,,2", "empty entry"},
		{":1", "no step id"},
		{"1::2", "malformed plan entry"},
		{"1:", "malformed plan entry"},
	}
	for _, tc := range tests {
		_, err := ParsePlan(tc.plan)
		require.Error(t, err, tc.plan)
		assert.Contains(t, err.Error(), tc.want, tc.plan)
		assert.True(t, types.IsFatal(err), tc.plan)
	}
}

func TestParsePlan_WhitespaceTolerated(t *testing.T) {
	plan, err := ParsePlan(" 1 , 2 : 1 ")

	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)
	assert.Equal(t, "1", plan.Entries[0].StepID)
	assert.Equal(t, []string{"1"}, plan.Entries[1].SubSteps)
}

func TestExecutionPlan_StepIDs(t *testing.T) {
	plan, err := ParsePlan("3,1,2:4")

	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, plan.StepIDs())
}
