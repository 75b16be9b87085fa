// Package config loads the runner configuration file.
//
// The file is deliberately free-form: any scalar key may be referenced
// from step parameters as a {placeholder}, so unknown fields are data,
// not errors. A typed view is decoded on top of the raw map for the
// keys the runner itself consumes.
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"yqhp/stepflow/pkg/types"
)

// Config is the typed view over the raw configuration map.
type Config struct {
	StepsDir string     `yaml:"steps_dir"`
	TempDir  string     `yaml:"temp_dir"`
	HooksDir string     `yaml:"hooks_dir"`
	LogDir   string     `yaml:"log_dir"`
	LogLevel string     `yaml:"log_level"`
	JSONLog  bool       `yaml:"json_log"`
	SSH      *SSHConfig `yaml:"ssh"`

	raw map[string]any
}

// SSHConfig holds defaults for the ssh_command plugin. Optional; plugins
// fall back to it when the step omits credentials.
type SSHConfig struct {
	User       string `yaml:"user"`
	PrivateKey string `yaml:"private_key"`
	Timeout    int    `yaml:"timeout"` // seconds
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		StepsDir: "steps",
		LogDir:   "logs",
		LogLevel: "INFO",
		raw:      map[string]any{},
	}
}

// Load reads and parses the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.WrapFatal(err, "reading configuration %s", path)
	}
	return Parse(data)
}

// Parse decodes configuration bytes. The full document is kept as the
// raw map; defaults fill any typed field the document omits.
func Parse(data []byte) (*Config, error) {
	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, types.WrapFatal(err, "parsing configuration")
	}
	if len(raw) == 0 {
		return nil, types.NewFatal("empty configuration")
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, types.WrapFatal(err, "parsing configuration")
	}
	cfg.raw = raw
	return cfg, nil
}

// Raw returns the full configuration map for placeholder resolution.
// Callers must treat it as read-only.
func (c *Config) Raw() map[string]any {
	return c.raw
}

// SSHTimeout returns the configured ssh timeout or the 30s default.
func (c *Config) SSHTimeout() time.Duration {
	if c.SSH == nil || c.SSH.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.SSH.Timeout) * time.Second
}

// LockPath returns the pid lock location, under temp_dir when one is
// configured and the system temp directory otherwise.
func (c *Config) LockPath() string {
	dir := c.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "stepflow.lock")
}

// EnsureDirs creates the writable directories the runner needs.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.TempDir, c.LogDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return types.WrapFatal(err, "creating directory %s", dir)
		}
	}
	return nil
}
