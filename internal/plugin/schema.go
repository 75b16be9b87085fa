package plugin

import (
	"fmt"
	"sort"
)

// ValueType names a YAML-level parameter type.
type ValueType string

const (
	TypeString ValueType = "string"
	TypeInt    ValueType = "int"
	TypeFloat  ValueType = "float"
	TypeBool   ValueType = "bool"
	TypeMap    ValueType = "map"
	TypeList   ValueType = "list"
	TypeAny    ValueType = "any"
)

// FieldSpec declares one parameter field. An empty Types slice accepts any
// type (declared fields can still be marked required).
type FieldSpec struct {
	Types       []ValueType
	Required    bool
	Description string
}

// Schema maps parameter names to their declarations.
type Schema map[string]FieldSpec

// MissingRequired returns the declared-required fields absent from
// params, sorted by name.
func (s Schema) MissingRequired(params map[string]any) []string {
	var missing []string
	for name, spec := range s {
		if !spec.Required {
			continue
		}
		if _, ok := params[name]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

// CheckRequired returns an error naming the first declared-required
// field missing from params.
func (s Schema) CheckRequired(params map[string]any) error {
	if missing := s.MissingRequired(params); len(missing) > 0 {
		return fmt.Errorf("required parameter %q missing", missing[0])
	}
	return nil
}

// CheckField verifies that a present parameter value conforms to its
// declared type or tuple of types. Unknown fields pass: schemas constrain
// what they declare, they do not close the parameter set.
func (s Schema) CheckField(name string, value any) error {
	spec, ok := s[name]
	if !ok || len(spec.Types) == 0 {
		return nil
	}
	for _, t := range spec.Types {
		if matchesType(value, t) {
			return nil
		}
	}
	return fmt.Errorf("parameter %q: value of type %T does not match declared type %s",
		name, value, typeList(spec.Types))
}

func matchesType(value any, t ValueType) bool {
	switch t {
	case TypeAny:
		return true
	case TypeString:
		_, ok := value.(string)
		return ok
	case TypeInt:
		switch value.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case TypeFloat:
		switch value.(type) {
		case float32, float64, int, int32, int64:
			return true
		}
		return false
	case TypeBool:
		_, ok := value.(bool)
		return ok
	case TypeMap:
		_, ok := value.(map[string]any)
		return ok
	case TypeList:
		_, ok := value.([]any)
		return ok
	}
	return false
}

func typeList(ts []ValueType) string {
	if len(ts) == 1 {
		return string(ts[0])
	}
	out := ""
	for i, t := range ts {
		if i > 0 {
			out += "|"
		}
		out += string(t)
	}
	return out
}
