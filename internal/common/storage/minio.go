package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds object storage settings for MinIO or any S3-compatible
// endpoint. Each key is stored as one object under KeyPrefix.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
	KeyPrefix string `yaml:"keyPrefix"`
	// Compress stores values zstd-compressed with content type application/zstd.
	Compress bool `yaml:"compress"`
}

// MinIOKV implements KV on top of an S3 bucket so preferences follow the user
// across machines.
type MinIOKV struct {
	core      *minio.Core
	bucket    string
	keyPrefix string
	compress  bool
}

func NewMinIOKV(cfg MinIOConfig) (*MinIOKV, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" {
		return nil, fmt.Errorf("minio accessKey is required")
	}
	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio secretKey is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is required")
	}
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio core failed: %w", err)
	}
	return &MinIOKV{core: core, bucket: cfg.Bucket, keyPrefix: cfg.KeyPrefix, compress: cfg.Compress}, nil
}

func (s *MinIOKV) objectKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return path.Join(s.keyPrefix, key)
}

func (s *MinIOKV) Get(ctx context.Context, key string) (string, bool, error) {
	obj, info, _, err := s.core.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("minio get object failed: %w", err)
	}
	defer func() { _ = obj.Close() }()
	data, err := io.ReadAll(obj)
	if err != nil {
		if isNoSuchKey(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("minio read object failed: %w", err)
	}
	value, err := decodeValue(data, info.ContentType)
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *MinIOKV) Set(ctx context.Context, key, value string) error {
	data, contentType, err := encodeValue(value, s.compress)
	if err != nil {
		return err
	}
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err = s.core.PutObject(ctx, s.bucket, s.objectKey(key), bytes.NewReader(data), int64(len(data)), "", "", opts)
	if err != nil {
		return fmt.Errorf("minio put object failed: %w", err)
	}
	return nil
}

func (s *MinIOKV) Close() error {
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
