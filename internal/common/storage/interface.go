package storage

import (
	"context"
	"strings"

	appErr "gide/pkg/errors"
)

// KV is the string-keyed store preferences and snippets are persisted in.
// Implementations must be safe for concurrent use.
type KV interface {
	// Get returns the value for key. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Close releases the underlying connection or file handle.
	Close() error
}

const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverRedis  = "redis"
	DriverMinIO  = "minio"
)

// Config selects and configures a KV backend.
type Config struct {
	Driver string      `yaml:"driver"`
	Prefix string      `yaml:"prefix"`
	Path   string      `yaml:"path"`
	Redis  RedisConfig `yaml:"redis"`
	MinIO  MinIOConfig `yaml:"minio"`
}

// Open builds the backend named by cfg.Driver.
func Open(cfg Config) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFile:
		return NewFileKV(cfg.Path)
	case DriverMemory:
		return NewMemoryKV(), nil
	case DriverRedis:
		return NewRedisKVWithConfig(&cfg.Redis)
	case DriverMinIO:
		return NewMinIOKV(cfg.MinIO)
	default:
		return nil, appErr.Newf(appErr.StorageNotSupported, "unsupported storage driver: %s", cfg.Driver)
	}
}
