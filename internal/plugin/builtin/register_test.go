package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/stepflow/internal/config"
	"yqhp/stepflow/internal/plugin"
)

func TestRegisterAll(t *testing.T) {
	registry := plugin.NewRegistry()
	require.NoError(t, RegisterAll(registry, nil))

	expected := []string{
		"check_icmp_connection",
		"check_tcp_connection",
		"compress_file",
		"database_query",
		"local_command",
		"read_file_content",
		"redis_command",
		"run_http_request",
		"s3_upload",
		"script",
		"send_email",
		"ssh_command",
		"uncompress_file",
		"write_file_content",
	}
	assert.Equal(t, expected, registry.Names())
	assert.Equal(t, len(expected), registry.Count())
}

func TestRegisterAll_DuplicateRegistration(t *testing.T) {
	registry := plugin.NewRegistry()
	require.NoError(t, RegisterAll(registry, nil))

	err := RegisterAll(registry, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name conflict")
}

func TestRegisterAll_EverySchemaIsDeclared(t *testing.T) {
	registry := plugin.NewRegistry()
	require.NoError(t, RegisterAll(registry, &config.Config{}))

	for _, name := range registry.Names() {
		schema, err := registry.Schema(name)
		require.NoError(t, err, name)
		assert.NotEmpty(t, schema, name)
	}
}
