package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

// FileWrite writes string content to a file, creating parent
// directories as needed.
type FileWrite struct{}

// NewFileWrite creates the write_file_content plugin.
func NewFileWrite() *FileWrite { return &FileWrite{} }

func (p *FileWrite) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "write_file_content",
		Version:     "1.0.0",
		Description: "Write content to a file",
		Category:    "file",
		Tags:        []string{"file", "write"},
	}
}

func (p *FileWrite) Schema() plugin.Schema {
	return plugin.Schema{
		"file_path": {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "path of the file to write"},
		"content":   {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "content to write"},
		"append":    {Types: []plugin.ValueType{plugin.TypeBool}, Description: "append instead of truncating (default false)"},
		"fail_fast": {Types: []plugin.ValueType{plugin.TypeBool}, Description: "treat a write failure as an error (default true)"},
	}
}

func (p *FileWrite) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	path, err := plugin.RequiredParam[string](req.Params, "file_path")
	if err != nil {
		return nil, err
	}
	content, err := plugin.RequiredParam[string](req.Params, "content")
	if err != nil {
		return nil, err
	}
	appendMode := plugin.OptionalParam(req.Params, "append", false)

	writeErr := func() error {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		flags := os.O_CREATE | os.O_WRONLY
		if appendMode {
			flags |= os.O_APPEND
		} else {
			flags |= os.O_TRUNC
		}
		f, err := os.OpenFile(path, flags, 0o644)
		if err != nil {
			return err
		}
		_, err = f.WriteString(content)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		return err
	}()

	if writeErr != nil {
		if failFast(req.Params) {
			return nil, fmt.Errorf("writing %s: %w", path, writeErr)
		}
		req.Logger.Warn("failed to write file", zap.String("path", path), zap.Error(writeErr))
		return map[string]any{"file_path": path, "status": "failure", "error": writeErr.Error()}, nil
	}

	req.Logger.Info("wrote file", zap.String("path", path), zap.Int("bytes", len(content)))
	return map[string]any{
		"file_path":     path,
		"bytes_written": len(content),
		"status":        "success",
	}, nil
}
