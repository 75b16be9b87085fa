package transform

import (
	"github.com/bytedance/sonic"

	"yqhp/stepflow/internal/render"
	"yqhp/stepflow/pkg/types"
)

// Compiled is an output mapping with its directives parsed.
type Compiled struct {
	Source     string
	Target     string
	Directives []Directive
}

// Compile parses a mapping's transforms once. Called by the validator and
// by the engine when a step is loaded.
func Compile(mapping *types.OutputMapping) (*Compiled, error) {
	directives, err := ParseAll(mapping.Transforms)
	if err != nil {
		return nil, err
	}
	return &Compiled{
		Source:     mapping.Source,
		Target:     mapping.Target,
		Directives: directives,
	}, nil
}

// Pipeline folds compiled transforms over plugin output. It shares the
// renderer with the parameter resolver so template: directives see the
// same namespaces.
type Pipeline struct {
	renderer *render.Renderer
}

// NewPipeline creates a pipeline on top of the given renderer.
func NewPipeline(renderer *render.Renderer) *Pipeline {
	return &Pipeline{renderer: renderer}
}

// Apply extracts mapping.Source (when set) and folds the directives
// left-to-right. config and context feed template: directives; the item
// under transformation is exposed to them as data.
func (p *Pipeline) Apply(data any, compiled *Compiled, config, context map[string]any) (any, error) {
	current := data

	if compiled.Source != "" {
		extracted, err := walkPath(current, compiled.Source)
		if err != nil {
			return nil, err
		}
		current = extracted
	}

	for _, d := range compiled.Directives {
		next, err := p.applyDirective(current, d, config, context)
		if err != nil {
			return nil, err
		}
		current = next
	}

	return current, nil
}

func (p *Pipeline) applyDirective(data any, d Directive, config, context map[string]any) (any, error) {
	switch d.Kind {
	case KindTemplate:
		scope := render.BaseScope(config, context, nil).With("data", data)
		out, err := p.renderer.Render(d.Expr, scope)
		if err != nil {
			return nil, types.WrapError(err, "transform %q", d.Raw)
		}
		return out, nil

	case KindFilter:
		list, ok := data.([]any)
		if !ok {
			return nil, types.NewError("transform %q: input is %T, want list", d.Raw, data)
		}
		kept := make([]any, 0, len(list))
		for _, el := range list {
			fieldVal, err := walkPath(el, d.Field)
			if err != nil {
				continue
			}
			if literalEqual(fieldVal, d.Literal) != d.Negate {
				kept = append(kept, el)
			}
		}
		return kept, nil

	case KindMap:
		list, ok := data.([]any)
		if !ok {
			return nil, types.NewError("transform %q: input is %T, want list", d.Raw, data)
		}
		mapped := make([]any, 0, len(list))
		for _, el := range list {
			fieldVal, err := walkPath(el, d.Field)
			if err != nil {
				// Elements lacking the field are skipped, not nulled.
				continue
			}
			mapped = append(mapped, fieldVal)
		}
		return mapped, nil

	case KindCast:
		out, err := castTo(d.TypeName, data)
		if err != nil {
			return nil, types.WrapError(err, "transform %q", d.Raw)
		}
		return out, nil

	case KindSelect:
		out, err := walkPath(data, d.Expr)
		if err != nil {
			return nil, types.WrapError(err, "transform %q", d.Raw)
		}
		return out, nil

	case KindJSONPath:
		results := d.path.Get(data)
		if len(results) == 0 {
			return nil, types.NewError("transform %q: no match", d.Raw)
		}
		if len(results) == 1 {
			return results[0], nil
		}
		return results, nil

	case KindJSONParse:
		// Lenient: non-JSON input passes through unchanged.
		var raw []byte
		switch v := data.(type) {
		case string:
			raw = []byte(v)
		case []byte:
			raw = v
		default:
			return data, nil
		}
		var decoded any
		if err := sonic.Unmarshal(raw, &decoded); err != nil {
			return data, nil
		}
		return decoded, nil

	case KindJSONStringify:
		b, err := sonic.Marshal(data)
		if err != nil {
			return nil, types.WrapError(err, "transform %q", d.Raw)
		}
		return string(b), nil
	}

	return nil, types.NewError("unknown transform %q", d.Raw)
}
