package config

import (
	"fmt"
	"os"
	"strings"

	"yqhp/stepflow/pkg/logger"
	"yqhp/stepflow/pkg/types"
)

// Validate checks the typed view. Any problem here stops the run before
// a single step is touched, so everything reported is fatal.
func (c *Config) Validate() error {
	var problems []string
	add := func(field, msg string, args ...any) {
		problems = append(problems, field+": "+fmt.Sprintf(msg, args...))
	}

	if c.StepsDir == "" {
		add("steps_dir", "is required")
	} else if err := checkDir(c.StepsDir); err != nil {
		add("steps_dir", "%v", err)
	}

	if c.LogDir == "" {
		add("log_dir", "is required")
	}

	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		add("log_level", "%v", err)
	}

	if c.HooksDir != "" {
		if err := checkDir(c.HooksDir); err != nil {
			add("hooks_dir", "%v", err)
		}
	}

	if c.SSH != nil {
		if c.SSH.Timeout < 0 {
			add("ssh.timeout", "must be non-negative")
		}
		if c.SSH.PrivateKey == "" {
			add("ssh.private_key", "is required when the ssh block is present")
		} else if info, err := os.Stat(c.SSH.PrivateKey); err != nil {
			add("ssh.private_key", "%v", err)
		} else if info.IsDir() {
			add("ssh.private_key", "%s is not a file", c.SSH.PrivateKey)
		}
	}

	if len(problems) > 0 {
		return types.NewFatal("invalid configuration:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

func checkDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	return nil
}
