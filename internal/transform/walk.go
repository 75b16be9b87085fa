package transform

import (
	"reflect"
	"strconv"
	"strings"

	"yqhp/stepflow/pkg/types"
)

// walkPath descends dot-separated segments. Mapping segments address keys,
// list segments address numeric indexes. A miss reports the failing
// segment, not just the whole path.
func walkPath(data any, path string) (any, error) {
	current := data
	for _, segment := range strings.Split(path, ".") {
		next, err := descend(current, segment, path)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func descend(data any, segment, fullPath string) (any, error) {
	switch v := data.(type) {
	case map[string]any:
		value, ok := v[segment]
		if !ok {
			return nil, types.NewError("path %q: segment %q not found", fullPath, segment)
		}
		return value, nil

	case []any:
		idx, err := strconv.Atoi(segment)
		if err != nil {
			return nil, types.NewError("path %q: segment %q is not a list index", fullPath, segment)
		}
		if idx < 0 || idx >= len(v) {
			return nil, types.NewError("path %q: index %d out of range (len %d)", fullPath, idx, len(v))
		}
		return v[idx], nil

	case nil:
		return nil, types.NewError("path %q: segment %q not found", fullPath, segment)
	}

	// Maps with non-any values (map[string]string and friends) come out of
	// some plugins; reflect covers them without enumerating every shape.
	rv := reflect.ValueOf(data)
	switch rv.Kind() {
	case reflect.Map:
		mv := rv.MapIndex(reflect.ValueOf(segment))
		if !mv.IsValid() {
			return nil, types.NewError("path %q: segment %q not found", fullPath, segment)
		}
		return mv.Interface(), nil
	case reflect.Slice, reflect.Array:
		idx, err := strconv.Atoi(segment)
		if err != nil {
			return nil, types.NewError("path %q: segment %q is not a list index", fullPath, segment)
		}
		if idx < 0 || idx >= rv.Len() {
			return nil, types.NewError("path %q: index %d out of range (len %d)", fullPath, idx, rv.Len())
		}
		return rv.Index(idx).Interface(), nil
	}

	return nil, types.NewError("path %q: cannot descend into %T at segment %q", fullPath, data, segment)
}
