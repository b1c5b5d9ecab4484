package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds the configuration for Redis client.
type RedisConfig struct {
	Addr            string        `yaml:"addr"`
	Password        string        `yaml:"password"`
	DB              int           `yaml:"db"`
	MaxRetries      int           `yaml:"maxRetries"`
	MinRetryBackoff time.Duration `yaml:"minRetryBackoff"`
	MaxRetryBackoff time.Duration `yaml:"maxRetryBackoff"`
	DialTimeout     time.Duration `yaml:"dialTimeout"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	PoolSize        int           `yaml:"poolSize"`
	MinIdleConns    int           `yaml:"minIdleConns"`
}

// DefaultRedisConfig returns a RedisConfig with sensible defaults.
func DefaultRedisConfig() *RedisConfig {
	return &RedisConfig{
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		PoolSize:        10,
		MinIdleConns:    1,
	}
}

// RedisKV implements KV using go-redis. Values never expire.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates a Redis store with default config.
func NewRedisKV(addr string) (*RedisKV, error) {
	config := DefaultRedisConfig()
	config.Addr = addr
	return NewRedisKVWithConfig(config)
}

// NewRedisKVWithConfig creates a Redis store with custom config. Zero
// durations and sizes fall back to DefaultRedisConfig.
func NewRedisKVWithConfig(config *RedisConfig) (*RedisKV, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if config.Addr == "" {
		return nil, fmt.Errorf("addr cannot be empty")
	}
	merged := mergeRedisDefaults(*config)

	client := redis.NewClient(&redis.Options{
		Addr:            merged.Addr,
		Password:        merged.Password,
		DB:              merged.DB,
		MaxRetries:      merged.MaxRetries,
		MinRetryBackoff: merged.MinRetryBackoff,
		MaxRetryBackoff: merged.MaxRetryBackoff,
		DialTimeout:     merged.DialTimeout,
		ReadTimeout:     merged.ReadTimeout,
		WriteTimeout:    merged.WriteTimeout,
		PoolSize:        merged.PoolSize,
		MinIdleConns:    merged.MinIdleConns,
	})
	ctx, cancel := context.WithTimeout(context.Background(), merged.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisKV{client: client}, nil
}

// NewRedisKVWithClient creates a Redis store from an existing redis.Client.
func NewRedisKVWithClient(client *redis.Client) (*RedisKV, error) {
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	return &RedisKV{client: client}, nil
}

func mergeRedisDefaults(cfg RedisConfig) RedisConfig {
	def := DefaultRedisConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.MinRetryBackoff == 0 {
		cfg.MinRetryBackoff = def.MinRetryBackoff
	}
	if cfg.MaxRetryBackoff == 0 {
		cfg.MaxRetryBackoff = def.MaxRetryBackoff
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = def.DialTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.PoolSize == 0 {
		cfg.PoolSize = def.PoolSize
	}
	if cfg.MinIdleConns == 0 {
		cfg.MinIdleConns = def.MinIdleConns
	}
	return cfg
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, key, value, 0).Err()
}

func (r *RedisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}
