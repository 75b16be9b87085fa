package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

// S3Upload uploads a local file to an S3-compatible object store.
type S3Upload struct{}

// NewS3Upload creates the s3_upload plugin.
func NewS3Upload() *S3Upload { return &S3Upload{} }

func (p *S3Upload) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "s3_upload",
		Version:     "1.0.0",
		Description: "Upload a file to an S3-compatible object store",
		Category:    "storage",
		Tags:        []string{"s3", "minio", "upload"},
	}
}

func (p *S3Upload) Schema() plugin.Schema {
	return plugin.Schema{
		"endpoint":     {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "object store endpoint, host:port"},
		"access_key":   {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "access key id"},
		"secret_key":   {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "secret access key"},
		"bucket":       {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "target bucket"},
		"file_path":    {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "local file to upload"},
		"object_name":  {Types: []plugin.ValueType{plugin.TypeString}, Description: "object key (defaults to the file name)"},
		"use_ssl":      {Types: []plugin.ValueType{plugin.TypeBool}, Description: "connect over TLS (default true)"},
		"content_type": {Types: []plugin.ValueType{plugin.TypeString}, Description: "object content type"},
	}
}

func (p *S3Upload) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	endpoint, err := plugin.RequiredParam[string](req.Params, "endpoint")
	if err != nil {
		return nil, err
	}
	accessKey, err := plugin.RequiredParam[string](req.Params, "access_key")
	if err != nil {
		return nil, err
	}
	secretKey, err := plugin.RequiredParam[string](req.Params, "secret_key")
	if err != nil {
		return nil, err
	}
	bucket, err := plugin.RequiredParam[string](req.Params, "bucket")
	if err != nil {
		return nil, err
	}
	filePath, err := plugin.RequiredParam[string](req.Params, "file_path")
	if err != nil {
		return nil, err
	}
	objectName := plugin.OptionalParam(req.Params, "object_name", filepath.Base(filePath))

	if _, err := os.Stat(filePath); err != nil {
		return nil, fmt.Errorf("upload source %s: %w", filePath, err)
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: plugin.OptionalParam(req.Params, "use_ssl", true),
	})
	if err != nil {
		return nil, fmt.Errorf("creating object store client: %w", err)
	}

	req.Logger.Info("uploading object",
		zap.String("bucket", bucket), zap.String("object", objectName))

	info, err := client.FPutObject(ctx, bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: plugin.OptionalParam(req.Params, "content_type", ""),
	})
	if err != nil {
		return nil, fmt.Errorf("uploading %s to %s/%s: %w", filePath, bucket, objectName, err)
	}

	return map[string]any{
		"bucket":      bucket,
		"object_name": objectName,
		"size":        info.Size,
		"etag":        info.ETag,
		"status":      "success",
	}, nil
}
