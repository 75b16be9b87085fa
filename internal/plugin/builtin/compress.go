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

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

const defaultCompressionLevel = 6

// Compress archives a file or directory as gzip, tar or zip.
//
// The gzip format compresses a single file. The tar format accepts
// files and directories and gzips the result when the output path ends
// in .gz or .tgz. The zip format accepts files and directories.
type Compress struct{}

// NewCompress creates the compress_file plugin.
func NewCompress() *Compress { return &Compress{} }

func (p *Compress) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "compress_file",
		Version:     "1.0.0",
		Description: "Compress a file or directory",
		Category:    "file",
		Tags:        []string{"compress", "archive", "gzip", "tar", "zip"},
	}
}

func (p *Compress) Schema() plugin.Schema {
	return plugin.Schema{
		"source_path":       {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "file or directory to compress"},
		"output_path":       {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "path of the archive to create"},
		"format":            {Types: []plugin.ValueType{plugin.TypeString}, Description: "gzip, tar or zip (default gzip)"},
		"compression_level": {Types: []plugin.ValueType{plugin.TypeInt}, Description: "1 (fastest) to 9 (best), default 6"},
	}
}

func (p *Compress) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	source, err := plugin.RequiredParam[string](req.Params, "source_path")
	if err != nil {
		return nil, err
	}
	output, err := plugin.RequiredParam[string](req.Params, "output_path")
	if err != nil {
		return nil, err
	}
	format := plugin.OptionalParam(req.Params, "format", "gzip")
	level := plugin.OptionalInt(req.Params, "compression_level", defaultCompressionLevel)
	if level < 1 || level > 9 {
		return nil, fmt.Errorf("compression_level must be between 1 and 9, got %d", level)
	}

	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source, err)
	}
	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}

	var reportedFormat string
	switch format {
	case "gzip":
		if info.IsDir() {
			return nil, fmt.Errorf("gzip format compresses single files, %s is a directory (use tar or zip)", source)
		}
		err = p.writeGzip(source, output, level)
		reportedFormat = "gzip"
	case "tar":
		gzipped := strings.HasSuffix(output, ".gz") || strings.HasSuffix(output, ".tgz")
		err = p.writeTar(source, output, level, gzipped)
		reportedFormat = "tar"
		if gzipped {
			reportedFormat = "tar.gz"
		}
	case "zip":
		err = p.writeZip(source, output, level)
		reportedFormat = "zip"
	default:
		return nil, fmt.Errorf("unsupported format %q (expected gzip, tar or zip)", format)
	}
	if err != nil {
		return nil, fmt.Errorf("compressing %s: %w", source, err)
	}

	originalSize, err := totalSize(source)
	if err != nil {
		return nil, err
	}
	outInfo, err := os.Stat(output)
	if err != nil {
		return nil, err
	}

	req.Logger.Info("compressed",
		zap.String("source", source), zap.String("output", output),
		zap.Int64("original_size", originalSize), zap.Int64("compressed_size", outInfo.Size()))

	ratio := 0.0
	if originalSize > 0 {
		ratio = float64(outInfo.Size()) / float64(originalSize)
	}
	return map[string]any{
		"source_path":       source,
		"output_path":       output,
		"format":            reportedFormat,
		"compression_level": level,
		"original_size":     originalSize,
		"compressed_size":   outInfo.Size(),
		"compression_ratio": ratio,
		"status":            "success",
	}, nil
}

func (p *Compress) writeGzip(source, output string, level int) error {
	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	gw, err := gzip.NewWriterLevel(out, level)
	if err != nil {
		return err
	}
	if _, err := io.Copy(gw, in); err != nil {
		gw.Close()
		return err
	}
	return gw.Close()
}

func (p *Compress) writeTar(source, output string, level int, gzipped bool) error {
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.Writer = out
	var gw *gzip.Writer
	if gzipped {
		gw, err = gzip.NewWriterLevel(out, level)
		if err != nil {
			return err
		}
		w = gw
	}
	tw := tar.NewWriter(w)

	err = walkArchive(source, func(path, arcname string, info os.FileInfo) error {
		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = arcname
		if info.IsDir() {
			header.Name += "/"
		}
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		tw.Close()
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	if gw != nil {
		return gw.Close()
	}
	return nil
}

func (p *Compress) writeZip(source, output string, level int) error {
	out, err := os.Create(output)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, level)
	})

	err = walkArchive(source, func(path, arcname string, info os.FileInfo) error {
		if info.IsDir() {
			return nil
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = arcname
		header.Method = zip.Deflate
		w, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// walkArchive visits source (a file or a directory tree) and calls fn
// with the archive-relative name rooted at the source's base name.
func walkArchive(source string, fn func(path, arcname string, info os.FileInfo) error) error {
	base := filepath.Base(source)
	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.Mode().IsRegular() && !info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		arcname := base
		if rel != "." {
			arcname = filepath.ToSlash(filepath.Join(base, rel))
		}
		return fn(path, arcname, info)
	})
}

// totalSize returns the file size, or the recursive size of a directory.
func totalSize(path string) (int64, error) {
	var total int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
