package builtin

import (
	"yqhp/stepflow/internal/config"
	"yqhp/stepflow/internal/plugin"
)

// RegisterAll registers every builtin plugin into the registry. The
// configuration supplies per-host defaults to plugins that take them.
func RegisterAll(registry *plugin.Registry, cfg *config.Config) error {
	var sshDefaults *config.SSHConfig
	if cfg != nil {
		sshDefaults = cfg.SSH
	}

	plugins := []plugin.Plugin{
		NewLocalCommand(),
		NewHTTPRequest(),
		NewTCPCheck(),
		NewICMPCheck(),
		NewFileRead(),
		NewFileWrite(),
		NewCompress(),
		NewUncompress(),
		NewDatabaseQuery(),
		NewRedisCommand(),
		NewS3Upload(),
		NewScript(),
		NewSSHCommand(sshDefaults),
		NewSendEmail(),
	}
	for _, p := range plugins {
		if err := registry.Register(p); err != nil {
			return err
		}
	}
	return nil
}
