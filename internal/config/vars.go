package config

import (
	"strings"

	"gopkg.in/yaml.v3"

	"yqhp/stepflow/pkg/types"
)

// ApplyVars overlays command-line overrides of the form key=value onto
// the raw map. Keys may be dot paths (log.level=DEBUG); values are
// parsed as YAML scalars, so retries=3 yields an int. The typed view is
// rebuilt afterwards so overrides reach both representations.
func (c *Config) ApplyVars(vars []string) error {
	if len(vars) == 0 {
		return nil
	}
	for _, v := range vars {
		key, val, ok := strings.Cut(v, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return types.NewFatal("malformed override %q, want key=value", v)
		}

		var node any
		if err := yaml.Unmarshal([]byte(val), &node); err != nil {
			node = val // 解析失败就按原样字符串处理
		}
		if err := setPath(c.raw, key, node); err != nil {
			return err
		}
	}
	return c.rebuild()
}

// setPath writes value at a dot path, creating intermediate maps.
func setPath(m map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	for i, part := range parts {
		if part == "" {
			return types.NewFatal("override path %q has an empty segment", path)
		}
		if i == len(parts)-1 {
			m[part] = value
			return nil
		}
		next, ok := m[part]
		if !ok {
			child := map[string]any{}
			m[part] = child
			m = child
			continue
		}
		child, ok := next.(map[string]any)
		if !ok {
			return types.NewFatal("override path %q crosses non-mapping key %q", path, part)
		}
		m = child
	}
	return nil
}

// rebuild re-decodes the typed view from the raw map.
func (c *Config) rebuild() error {
	data, err := yaml.Marshal(c.raw)
	if err != nil {
		return types.WrapFatal(err, "serializing configuration")
	}
	fresh := Default()
	if err := yaml.Unmarshal(data, fresh); err != nil {
		return types.WrapFatal(err, "applying overrides")
	}
	fresh.raw = c.raw
	*c = *fresh
	return nil
}
