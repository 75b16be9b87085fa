package transform

import (
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/duke-git/lancet/v2/convertor"

	"yqhp/stepflow/pkg/types"
)

// castTo applies a built-in type cast. int/float refuse uncastable input
// instead of yielding zero values.
func castTo(typeName string, data any) (any, error) {
	switch typeName {
	case "string":
		return convertor.ToString(data), nil

	case "int":
		n, err := convertor.ToInt(data)
		if err != nil {
			return nil, types.WrapError(err, "cannot cast %T to int", data)
		}
		return int(n), nil

	case "float":
		f, err := convertor.ToFloat(data)
		if err != nil {
			return nil, types.WrapError(err, "cannot cast %T to float", data)
		}
		return f, nil

	case "bool":
		return toBool(data), nil

	case "list":
		return toList(data), nil

	case "dict":
		return toDict(data)
	}

	return nil, types.NewError("unknown cast type %q", typeName)
}

// toBool follows the truthy sets: true/yes/1/on are true, false/no/0/off
// and the empty string are false, numbers compare against zero, and
// containers are truthy when non-empty.
func toBool(data any) bool {
	switch v := data.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "1", "on":
			return true
		default:
			return false
		}
	}

	if f, err := convertor.ToFloat(data); err == nil {
		return f != 0
	}

	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len() > 0
	}
	return true
}

// toList wraps scalars in a single-element list and passes lists through.
func toList(data any) []any {
	switch v := data.(type) {
	case nil:
		return []any{}
	case []any:
		return v
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = rv.Index(i).Interface()
		}
		return out
	}
	return []any{data}
}

// toDict passes mappings through, decodes JSON-object strings, and rejects
// everything else.
func toDict(data any) (any, error) {
	switch v := data.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case string:
		return jsonObject([]byte(v))
	case []byte:
		return jsonObject(v)
	}

	rv := reflect.ValueOf(data)
	if rv.Kind() == reflect.Map {
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[convertor.ToString(iter.Key().Interface())] = iter.Value().Interface()
		}
		return out, nil
	}

	return nil, types.NewError("cannot convert %T to dict", data)
}

func jsonObject(b []byte) (any, error) {
	var decoded any
	if err := sonic.Unmarshal(b, &decoded); err != nil {
		return nil, types.WrapError(err, "cannot convert string to dict")
	}
	m, ok := decoded.(map[string]any)
	if !ok {
		return nil, types.NewError("cannot convert %T to dict", decoded)
	}
	return m, nil
}

// literalEqual compares a field value against a coerced filter literal.
// Numeric literals tolerate numeric strings; bool literals require bools.
func literalEqual(fieldVal, literal any) bool {
	switch lit := literal.(type) {
	case bool:
		b, ok := fieldVal.(bool)
		return ok && b == lit
	case int:
		f, err := convertor.ToFloat(fieldVal)
		return err == nil && f == float64(lit)
	case float64:
		f, err := convertor.ToFloat(fieldVal)
		return err == nil && f == lit
	case string:
		if s, ok := fieldVal.(string); ok {
			return s == lit
		}
		return convertor.ToString(fieldVal) == lit
	}
	return false
}
