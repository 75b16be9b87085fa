package builtin

import (
	"archive/tar"
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

// Uncompress extracts a .zip, .tar.gz or .tgz archive into a directory.
type Uncompress struct{}

// NewUncompress creates the uncompress_file plugin.
func NewUncompress() *Uncompress { return &Uncompress{} }

func (p *Uncompress) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "uncompress_file",
		Version:     "1.0.0",
		Description: "Extract an archive into a directory",
		Category:    "file",
		Tags:        []string{"uncompress", "extract", "archive"},
	}
}

func (p *Uncompress) Schema() plugin.Schema {
	return plugin.Schema{
		"source_path": {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "archive to extract (.zip, .tar.gz, .tgz)"},
		"dest_dir":    {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "directory to extract into"},
	}
}

func (p *Uncompress) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	source, err := plugin.RequiredParam[string](req.Params, "source_path")
	if err != nil {
		return nil, err
	}
	dest, err := plugin.RequiredParam[string](req.Params, "dest_dir")
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("archive %s: %w", source, err)
	}
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}

	var extracted int
	switch {
	case strings.HasSuffix(source, ".zip"):
		extracted, err = p.extractZip(source, dest)
	case strings.HasSuffix(source, ".tar.gz"), strings.HasSuffix(source, ".tgz"):
		extracted, err = p.extractTarGz(source, dest)
	default:
		return nil, fmt.Errorf("unsupported archive format: %s (expected .zip, .tar.gz or .tgz)", source)
	}
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", source, err)
	}

	req.Logger.Info("extracted archive",
		zap.String("source", source), zap.String("dest", dest), zap.Int("files", extracted))

	return map[string]any{
		"source_path":     source,
		"dest_dir":        dest,
		"files_extracted": extracted,
		"status":          "success",
	}, nil
}

func (p *Uncompress) extractZip(source, dest string) (int, error) {
	reader, err := zip.OpenReader(source)
	if err != nil {
		return 0, err
	}
	defer reader.Close()

	extracted := 0
	for _, file := range reader.File {
		target, err := safeJoin(dest, file.Name)
		if err != nil {
			return extracted, err
		}
		if file.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return extracted, err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return extracted, err
		}
		rc, err := file.Open()
		if err != nil {
			return extracted, err
		}
		if err := writeEntry(target, rc, file.Mode()); err != nil {
			rc.Close()
			return extracted, err
		}
		rc.Close()
		extracted++
	}
	return extracted, nil
}

func (p *Uncompress) extractTarGz(source, dest string) (int, error) {
	f, err := os.Open(source)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer gr.Close()

	tr := tar.NewReader(gr)
	extracted := 0
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return extracted, nil
		}
		if err != nil {
			return extracted, err
		}
		target, err := safeJoin(dest, header.Name)
		if err != nil {
			return extracted, err
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return extracted, err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return extracted, err
			}
			if err := writeEntry(target, tr, header.FileInfo().Mode()); err != nil {
				return extracted, err
			}
			extracted++
		}
	}
}

// safeJoin joins an archive entry name onto dest and rejects entries
// that would escape it.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, name)
	if !strings.HasPrefix(target, filepath.Clean(dest)+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	_, err = io.Copy(out, r)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}
