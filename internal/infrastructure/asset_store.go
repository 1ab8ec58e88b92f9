package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// LocalAssetStore deletes campaign assets under a base directory.
type LocalAssetStore struct {
	baseDir string
}

func NewLocalAssetStore(baseDir string) *LocalAssetStore {
	return &LocalAssetStore{baseDir: baseDir}
}

// Delete removes path, which is relative to the base directory. Paths that
// escape the base directory are rejected.
func (s *LocalAssetStore) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	full := path
	if !filepath.IsAbs(path) {
		full = filepath.Join(s.baseDir, path)
	}
	rel, err := filepath.Rel(s.baseDir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("asset path %q is outside %s", path, s.baseDir)
	}

	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete asset: %w", err)
	}
	return nil
}

// S3AssetStore deletes campaign assets from an S3 bucket.
type S3AssetStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3AssetConfig holds configuration for S3AssetStore.
type S3AssetConfig struct {
	Bucket   string
	Region   string
	Endpoint string // optional, for MinIO or LocalStack
	Prefix   string
}

func NewS3AssetStore(ctx context.Context, cfg S3AssetConfig) (*S3AssetStore, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3AssetStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (s *S3AssetStore) key(path string) string {
	return s.prefix + strings.TrimPrefix(filepath.ToSlash(path), "/")
}

// Delete removes the object. S3 reports success for missing keys.
func (s *S3AssetStore) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(path)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete s3 object: %w", err)
	}
	return nil
}
