package builtin

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

// FileRead reads a file and returns its content as a string, so a
// sub-step can publish it under an output key for later sub-steps.
type FileRead struct{}

// NewFileRead creates the read_file_content plugin.
func NewFileRead() *FileRead { return &FileRead{} }

func (p *FileRead) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "read_file_content",
		Version:     "1.0.0",
		Description: "Read a file and return its content",
		Category:    "file",
		Tags:        []string{"file", "read"},
	}
}

func (p *FileRead) Schema() plugin.Schema {
	return plugin.Schema{
		"file_path": {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "path of the file to read"},
		"fail_fast": {Types: []plugin.ValueType{plugin.TypeBool}, Description: "treat a read failure as an error (default true)"},
	}
}

func (p *FileRead) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	path, err := plugin.RequiredParam[string](req.Params, "file_path")
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if failFast(req.Params) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		req.Logger.Warn("failed to read file", zap.String("path", path), zap.Error(err))
		return "", nil
	}

	req.Logger.Debug("read file", zap.String("path", path), zap.Int("bytes", len(data)))
	return string(data), nil
}
