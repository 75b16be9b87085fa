// Package validate checks a plan before execution: definition files,
// document structure, plugin references, declared parameter schemas, and
// a best-effort placeholder resolution pass against the static config.
// The whole plan is validated before the first plugin runs.
package validate

import (
	"errors"
	"sort"
	"strings"

	"yqhp/stepflow/internal/config"
	"yqhp/stepflow/internal/parser"
	"yqhp/stepflow/internal/plugin"
	"yqhp/stepflow/internal/render"
	"yqhp/stepflow/internal/resolver"
	"yqhp/stepflow/internal/transform"
	"yqhp/stepflow/pkg/types"
)

// sensitiveKeys triggers the hard-coded-secret heuristic.
var sensitiveKeys = []string{"key_path", "password"}

// Validator checks step definitions against the registry and config.
type Validator struct {
	cfg     *config.Config
	plugins *plugin.Registry
	source  *parser.Source
}

// New creates a validator.
func New(cfg *config.Config, plugins *plugin.Registry, source *parser.Source) *Validator {
	return &Validator{cfg: cfg, plugins: plugins, source: source}
}

// ValidatePlan checks every step the plan will touch. An empty plan
// validates all discovered steps, matching what execution would run.
func (v *Validator) ValidatePlan(plan *types.ExecutionPlan) *Report {
	r := &Report{}

	entries := plan.Entries
	if plan.IsEmpty() {
		ids, err := v.source.Discover()
		if err != nil {
			r.addf(LevelFatal, "", "", "%v", err)
			return r
		}
		for _, id := range ids {
			entries = append(entries, types.PlanEntry{StepID: id})
		}
	}

	for _, entry := range entries {
		v.validateStep(r, entry)
	}
	return r
}

func (v *Validator) validateStep(r *Report, entry types.PlanEntry) {
	def, err := v.source.LoadStep(entry.StepID)
	if err != nil {
		if errors.Is(err, parser.ErrStepNotFound) {
			r.addf(LevelFatal, entry.StepID, "", "definition not found: %s", v.source.StepPath(entry.StepID))
		} else {
			r.addf(LevelFatal, entry.StepID, "", "%v", err)
		}
		return
	}

	if def.Description == "" {
		r.addf(LevelFatal, def.ID, "", "missing description")
	}
	if len(def.SubSteps) == 0 {
		r.addf(LevelWarn, def.ID, "", "step has no sub-steps")
	}

	// Output keys declared by earlier sub-steps count as resolvable for
	// the placeholder check below: they exist at runtime even though the
	// static config cannot know them.
	seen := map[string]bool{}
	declared := map[string]bool{}
	for i := range def.SubSteps {
		sub := &def.SubSteps[i]
		if sub.ID != "" && seen[sub.ID] {
			r.addf(LevelFatal, def.ID, sub.ID, "duplicate sub-step id")
		}
		seen[sub.ID] = true

		v.validateSubStep(r, def, sub, declared)

		if sub.OutputKey != "" {
			declared[sub.OutputKey] = true
		}
		if sub.OutputMapping != nil && sub.OutputMapping.Target != "" {
			declared[sub.OutputMapping.Target] = true
		}
	}

	for _, subID := range entry.SubSteps {
		if def.SubStep(subID) == nil {
			r.addf(LevelError, def.ID, subID, "sub-step not found")
		}
	}
}

func (v *Validator) validateSubStep(r *Report, def *types.StepDefinition, sub *types.SubStepDefinition, declared map[string]bool) {
	if sub.ID == "" {
		r.addf(LevelFatal, def.ID, "", "sub-step missing id")
	}
	if sub.Description == "" {
		r.addf(LevelFatal, def.ID, sub.ID, "missing description")
	}
	if sub.Params == nil {
		r.addf(LevelFatal, def.ID, sub.ID, "missing params")
	}
	if sub.Retry < 0 {
		r.addf(LevelError, def.ID, sub.ID, "retry must be non-negative, got %d", sub.Retry)
	}

	if sub.OutputMapping != nil {
		if sub.OutputMapping.Target == "" {
			r.addf(LevelFatal, def.ID, sub.ID, "output_mapping missing target")
		}
		if _, err := transform.Compile(sub.OutputMapping); err != nil {
			r.addf(LevelError, def.ID, sub.ID, "%v", err)
		}
	}

	if sub.Plugin == "" {
		r.addf(LevelFatal, def.ID, sub.ID, "missing plugin")
		return
	}
	if !v.plugins.Has(sub.Plugin) {
		r.addf(LevelFatal, def.ID, sub.ID, "unknown plugin %q", sub.Plugin)
		return
	}

	v.checkSchema(r, def, sub)
	v.checkSecrets(r, def, sub)
	v.checkPlaceholders(r, def, sub, declared)
}

// checkSchema verifies declared parameter fields. Values carrying
// template, placeholder or env markers are skipped: their runtime type is
// unknowable before resolution.
func (v *Validator) checkSchema(r *Report, def *types.StepDefinition, sub *types.SubStepDefinition) {
	schema, err := v.plugins.Schema(sub.Plugin)
	if err != nil {
		return // plugin declares no schema
	}

	for _, name := range schema.MissingRequired(sub.Params) {
		r.addf(LevelError, def.ID, sub.ID, "missing required param %q", name)
	}

	for _, name := range sortedKeys(sub.Params) {
		if strings.HasSuffix(name, resolver.TemplateFlagSuffix) {
			continue
		}
		value := sub.Params[name]
		if s, ok := value.(string); ok && isDynamic(s) {
			continue
		}
		if err := schema.CheckField(name, value); err != nil {
			r.addf(LevelError, def.ID, sub.ID, "%v", err)
		}
	}
}

// checkSecrets warns when a sensitive parameter is a hard-coded literal
// rather than a placeholder, template or env reference.
func (v *Validator) checkSecrets(r *Report, def *types.StepDefinition, sub *types.SubStepDefinition) {
	for _, key := range sensitiveKeys {
		value, ok := sub.Params[key]
		if !ok {
			continue
		}
		s, ok := value.(string)
		if !ok || s == "" {
			continue
		}
		if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "$") {
			continue
		}
		r.addf(LevelWarn, def.ID, sub.ID,
			"potential hard-coded sensitive param %q, consider using env vars", key)
	}
}

// checkPlaceholders eagerly resolves legacy {key} references against the
// static config. Keys produced by earlier sub-steps are excused; anything
// else missing would fail the same way at run time.
func (v *Validator) checkPlaceholders(r *Report, def *types.StepDefinition, sub *types.SubStepDefinition, declared map[string]bool) {
	raw := v.cfg.Raw()
	for _, name := range sortedKeys(sub.Params) {
		s, ok := sub.Params[name].(string)
		if !ok || render.IsTemplate(s) {
			continue
		}
		for _, key := range resolver.PlaceholderKeys(s) {
			if _, inConfig := raw[key]; inConfig || declared[key] {
				continue
			}
			r.addf(LevelError, def.ID, sub.ID,
				"missing config key %q for placeholder in parameter %q", key, name)
		}
	}
}

// isDynamic reports whether a string's resolved value cannot be known
// statically.
func isDynamic(s string) bool {
	return render.IsTemplate(s) ||
		len(resolver.PlaceholderKeys(s)) > 0 ||
		strings.ContainsRune(s, '$')
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
