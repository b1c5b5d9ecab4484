package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gide/internal/common/storage"
	"gide/internal/formatter"
	"gide/internal/judge"
	"gide/pkg/utils/logger"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath        = "configs/gide.yaml"
	DefaultHTTPAddr    = "0.0.0.0:8080"
	DefaultHistoryFile = ".gide_history"
	DefaultPrompt      = "gide> "

	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultMaxHeaderBytes  = 1 << 20
	defaultMaxCodeBytes    = 64 << 10
)

// Environment variables that override file settings.
const (
	EnvJudgeAPIKey  = "GIDE_JUDGE_API_KEY"
	EnvJudgeAPIHost = "GIDE_JUDGE_API_HOST"
	EnvJudgeBaseURL = "GIDE_JUDGE_BASE_URL"
	EnvStorage      = "GIDE_STORAGE_DRIVER"
	EnvFormatter    = "GIDE_FORMATTER"
	EnvRapidAPIKey  = "RAPID_API_KEY"
)

// RunConfig controls execution behavior.
type RunConfig struct {
	Policy       judge.Policy  `yaml:"policy"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxCodeBytes int           `yaml:"maxCodeBytes"`
}

// FormatterConfig names the external pretty-printer. Empty disables it.
type FormatterConfig struct {
	Command string        `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// CLIConfig holds interactive session settings.
type CLIConfig struct {
	Prompt      string `yaml:"prompt"`
	HistoryFile string `yaml:"historyFile"`
	Editor      string `yaml:"editor"`
	Color       *bool  `yaml:"color"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxHeaderBytes  int           `yaml:"maxHeaderBytes"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	Enabled          bool          `yaml:"enabled"`
	AllowedOrigins   []string      `yaml:"allowedOrigins"`
	AllowedMethods   []string      `yaml:"allowedMethods"`
	AllowedHeaders   []string      `yaml:"allowedHeaders"`
	ExposedHeaders   []string      `yaml:"exposedHeaders"`
	AllowCredentials bool          `yaml:"allowCredentials"`
	MaxAge           time.Duration `yaml:"maxAge"`
}

// Config is shared by the CLI and the HTTP server.
type Config struct {
	Logger    logger.Config        `yaml:"logger"`
	Storage   storage.Config       `yaml:"storage"`
	Judge     judge.ClientConfig   `yaml:"judge"`
	Poll      judge.ExecutorConfig `yaml:"poll"`
	Run       RunConfig            `yaml:"run"`
	Formatter FormatterConfig      `yaml:"formatter"`
	CLI       CLIConfig            `yaml:"cli"`
	Server    ServerConfig         `yaml:"server"`
	CORS      CORSConfig           `yaml:"cors"`
}

// Load reads path as YAML, or TOML when it ends in .toml. A missing file
// yields the defaults. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config file failed: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config file failed: %w", err)
			}
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given files, skipping missing ones.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file failed: %w", err)
	}
	return nil
}

// decode parses TOML into a generic tree and re-encodes it as YAML so both
// formats share one decoder. go-toml cannot read "1s" into time.Duration.
func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		var tree map[string]any
		if err := toml.Unmarshal(data, &tree); err != nil {
			return err
		}
		converted, err := yaml.Marshal(tree)
		if err != nil {
			return err
		}
		data = converted
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	if v := firstEnv(EnvJudgeAPIKey, EnvRapidAPIKey); v != "" {
		cfg.Judge.APIKey = v
	}
	if v := os.Getenv(EnvJudgeAPIHost); v != "" {
		cfg.Judge.APIHost = v
	}
	if v := os.Getenv(EnvJudgeBaseURL); v != "" {
		cfg.Judge.BaseURL = v
	}
	if v := os.Getenv(EnvStorage); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv(EnvFormatter); v != "" {
		cfg.Formatter.Command = v
	}
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.Judge.BaseURL == "" {
		cfg.Judge.BaseURL = judge.DefaultBaseURL
	}
	if cfg.Judge.APIHost == "" && cfg.Judge.BaseURL == judge.DefaultBaseURL {
		cfg.Judge.APIHost = judge.DefaultAPIHost
	}
	if cfg.Judge.Timeout == 0 {
		cfg.Judge.Timeout = judge.DefaultTimeout
	}
	if cfg.Poll.PollInterval == 0 {
		cfg.Poll.PollInterval = judge.DefaultPollInterval
	}
	if cfg.Run.Policy == "" {
		cfg.Run.Policy = judge.PolicyReject
	}
	if cfg.Run.MaxCodeBytes == 0 {
		cfg.Run.MaxCodeBytes = defaultMaxCodeBytes
	}
	if cfg.Formatter.Timeout == 0 {
		cfg.Formatter.Timeout = formatter.DefaultTimeout
	}

	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = storage.DriverFile
	}
	if cfg.Storage.Driver == storage.DriverFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = storage.DefaultFilePath
	}

	if cfg.CLI.Prompt == "" {
		cfg.CLI.Prompt = DefaultPrompt
	}
	if cfg.CLI.HistoryFile == "" {
		cfg.CLI.HistoryFile = DefaultHistoryFile
	}
	if cfg.CLI.Editor == "" {
		cfg.CLI.Editor = os.Getenv("EDITOR")
	}
	if cfg.CLI.Color == nil {
		value := true
		cfg.CLI.Color = &value
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = defaultMaxHeaderBytes
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"Content-Type", "X-Trace-Id", "X-Request-Id"}
	}
}

func validate(cfg *Config) error {
	switch cfg.Storage.Driver {
	case storage.DriverFile, storage.DriverMemory:
	case storage.DriverRedis:
		if cfg.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage.redis.addr is required for the redis driver")
		}
	case storage.DriverMinIO:
		if cfg.Storage.MinIO.Endpoint == "" || cfg.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("storage.minio endpoint and bucket are required for the minio driver")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
	if _, err := judge.NewGuard(cfg.Run.Policy); err != nil {
		return err
	}
	if cfg.Poll.MaxAttempts < 0 {
		return fmt.Errorf("poll.maxAttempts must not be negative")
	}
	return nil
}

// ColorEnabled reports whether CLI output should be colorized.
func (c Config) ColorEnabled() bool {
	return c.CLI.Color == nil || *c.CLI.Color
}

// CORSMaxAge renders MaxAge in seconds for the Access-Control-Max-Age header.
func (c CORSConfig) CORSMaxAge() string {
	if c.MaxAge <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", int(c.MaxAge.Seconds()))
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	out := c
	if out.Judge.APIKey != "" {
		out.Judge.APIKey = "***"
	}
	if out.Storage.Redis.Password != "" {
		out.Storage.Redis.Password = "***"
	}
	if out.Storage.MinIO.SecretKey != "" {
		out.Storage.MinIO.SecretKey = "***"
	}
	return out
}
