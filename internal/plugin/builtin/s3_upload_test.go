package builtin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestS3Upload_MissingFile(t *testing.T) {
	_, err := NewS3Upload().Execute(context.Background(), execReq(map[string]any{
		"endpoint":   "127.0.0.1:9000",
		"access_key": "ak",
		"secret_key": "sk",
		"bucket":     "backups",
		"file_path":  filepath.Join(t.TempDir(), "absent.tar.gz"),
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload source")
}

func TestS3Upload_MissingParams(t *testing.T) {
	_, err := NewS3Upload().Execute(context.Background(), execReq(map[string]any{
		"endpoint": "127.0.0.1:9000",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required parameter "access_key" missing`)
}

func TestS3Upload_RejectedUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "artifact.txt")
	require.NoError(t, os.WriteFile(path, []byte("artifact"), 0o644))

	_, err := NewS3Upload().Execute(context.Background(), execReq(map[string]any{
		"endpoint":   strings.TrimPrefix(server.URL, "http://"),
		"access_key": "ak",
		"secret_key": "sk",
		"bucket":     "backups",
		"file_path":  path,
		"use_ssl":    false,
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "uploading")
	assert.Contains(t, err.Error(), "backups/artifact.txt")
}
