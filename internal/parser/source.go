// Package parser loads step definitions from the steps directory and
// parses execution-plan selection strings.
//
// On disk a step lives at <steps_dir>/step<ID>/step<ID>.yaml. Discovery
// scans for that layout; ids sort lexically.
package parser

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"yqhp/stepflow/internal/render"
	"yqhp/stepflow/pkg/types"
)

// ErrStepNotFound distinguishes a missing definition file from a broken
// one.
var ErrStepNotFound = errors.New("step definition not found")

// Source reads step definitions. Descriptions containing template markers
// are rendered at load time against the static config (the step context
// does not exist yet); params are left untouched for the resolver.
type Source struct {
	stepsDir string
	renderer *render.Renderer
	config   map[string]any
}

// NewSource creates a definition source rooted at stepsDir.
func NewSource(stepsDir string, renderer *render.Renderer, config map[string]any) *Source {
	return &Source{stepsDir: stepsDir, renderer: renderer, config: config}
}

// StepPath returns the definition file path for a step id.
func (s *Source) StepPath(id string) string {
	name := "step" + id
	return filepath.Join(s.stepsDir, name, name+".yaml")
}

// Exists reports whether the definition file for id is present.
func (s *Source) Exists(id string) bool {
	info, err := os.Stat(s.StepPath(id))
	return err == nil && !info.IsDir()
}

// LoadStep reads and decodes one step definition. A missing file wraps
// ErrStepNotFound; both missing and malformed definitions are FATAL.
func (s *Source) LoadStep(id string) (*types.StepDefinition, error) {
	path := s.StepPath(id)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, types.WrapFatal(ErrStepNotFound, "step %s (%s)", id, path)
		}
		return nil, types.WrapFatal(err, "reading step %s definition", id)
	}

	var def types.StepDefinition
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // strict: unknown fields are authoring errors
	if err := decoder.Decode(&def); err != nil {
		return nil, types.WrapFatal(err, "parsing step %s definition (%s)", id, path)
	}
	def.ID = id

	if err := s.renderDescriptions(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Discover returns the ids of all steps whose definition files exist,
// sorted lexically.
func (s *Source) Discover() ([]string, error) {
	entries, err := os.ReadDir(s.stepsDir)
	if err != nil {
		return nil, types.WrapFatal(err, "reading steps directory %s", s.stepsDir)
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "step") {
			continue
		}
		id := strings.TrimPrefix(entry.Name(), "step")
		if id == "" || !s.Exists(id) {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// renderDescriptions renders dynamic step and sub-step descriptions.
// Only descriptions: params are resolved per sub-step at execution time.
func (s *Source) renderDescriptions(def *types.StepDefinition) error {
	scope := render.BaseScope(s.config, nil, nil)

	if render.IsTemplate(def.Description) {
		out, err := s.renderer.Render(def.Description, scope)
		if err != nil {
			return types.WrapFatal(err, "step %s description", def.ID)
		}
		def.Description = out
	}
	for i := range def.SubSteps {
		sub := &def.SubSteps[i]
		if render.IsTemplate(sub.Description) {
			out, err := s.renderer.Render(sub.Description, scope)
			if err != nil {
				return types.WrapFatal(err, "step %s sub-step %s description", def.ID, sub.ID)
			}
			sub.Description = out
		}
	}
	return nil
}
