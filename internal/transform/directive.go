// Package transform implements the output-mapping pipeline: extract a
// value from raw plugin output, fold an ordered list of small transforms
// over it, and hand the result back for storage in the step context.
//
// Directives stay textual in YAML for compatibility, but are compiled once
// into typed values when a step is loaded or validated; execution never
// re-parses the strings.
package transform

import (
	"strconv"
	"strings"

	"github.com/ohler55/ojg/jp"

	"yqhp/stepflow/pkg/types"
)

// Kind identifies a compiled directive.
type Kind int

const (
	// KindTemplate renders an expression with the item exposed as data.
	KindTemplate Kind = iota
	// KindFilter keeps list elements whose field compares == (or !=)
	// against a literal.
	KindFilter
	// KindMap projects a field out of each list element.
	KindMap
	// KindCast coerces to a built-in type (as:<type> or a bare type name).
	KindCast
	// KindSelect extracts a dot-path mid-pipeline.
	KindSelect
	// KindJSONPath evaluates a JSONPath expression against the item.
	KindJSONPath
	// KindJSONParse decodes a JSON string item.
	KindJSONParse
	// KindJSONStringify encodes the item as a JSON string.
	KindJSONStringify
)

// Directive is one compiled transform.
type Directive struct {
	Kind Kind
	Raw  string

	Expr     string // template expression, select path
	Field    string // filter/map field path
	Literal  any    // coerced filter literal
	Negate   bool   // filter uses != instead of ==
	TypeName string // cast target

	path jp.Expr // compiled jsonpath
}

var castTypes = map[string]bool{
	"string": true, "int": true, "float": true,
	"bool": true, "list": true, "dict": true,
}

// Parse compiles a single textual directive. Unknown directives are an
// unconditional error.
func Parse(raw string) (Directive, error) {
	d := Directive{Raw: raw}

	switch {
	case strings.HasPrefix(raw, "template:"):
		d.Kind = KindTemplate
		d.Expr = raw[len("template:"):]
		if strings.TrimSpace(d.Expr) == "" {
			return d, types.NewError("transform %q: empty template expression", raw)
		}

	case strings.HasPrefix(raw, "filter:"):
		d.Kind = KindFilter
		cond := raw[len("filter:"):]
		field, lit, found := strings.Cut(cond, "==")
		if !found {
			field, lit, found = strings.Cut(cond, "!=")
			d.Negate = found
		}
		if !found || strings.TrimSpace(field) == "" {
			return d, types.NewError("transform %q: want filter:<field>==<literal>", raw)
		}
		d.Field = strings.TrimSpace(field)
		d.Literal = coerceLiteral(strings.TrimSpace(lit))

	case strings.HasPrefix(raw, "map:"):
		d.Kind = KindMap
		expr := raw[len("map:"):]
		if !strings.HasPrefix(expr, "item.") || len(expr) == len("item.") {
			return d, types.NewError("transform %q: want map:item.<field>", raw)
		}
		d.Field = expr[len("item."):]

	case strings.HasPrefix(raw, "as:"):
		d.Kind = KindCast
		d.TypeName = raw[len("as:"):]
		if !castTypes[d.TypeName] {
			return d, types.NewError("transform %q: unknown target type %q", raw, d.TypeName)
		}

	case strings.HasPrefix(raw, "select:"):
		d.Kind = KindSelect
		d.Expr = raw[len("select:"):]
		if d.Expr == "" {
			return d, types.NewError("transform %q: empty select path", raw)
		}

	case strings.HasPrefix(raw, "jsonpath:"):
		d.Kind = KindJSONPath
		d.Expr = raw[len("jsonpath:"):]
		compiled, err := jp.ParseString(d.Expr)
		if err != nil {
			return d, types.WrapError(err, "transform %q: invalid jsonpath", raw)
		}
		d.path = compiled

	case raw == "json_parse":
		d.Kind = KindJSONParse

	case raw == "json_stringify":
		d.Kind = KindJSONStringify

	case castTypes[raw]:
		d.Kind = KindCast
		d.TypeName = raw

	default:
		return d, types.NewError("unknown transform %q", raw)
	}

	return d, nil
}

// ParseAll compiles every directive of a mapping.
func ParseAll(raws []string) ([]Directive, error) {
	out := make([]Directive, 0, len(raws))
	for _, raw := range raws {
		d, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// coerceLiteral types a filter literal: True/False, integer, float, quoted
// string, else the raw text.
func coerceLiteral(s string) any {
	switch s {
	case "True":
		return true
	case "False":
		return false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
