package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"gide/pkg/utils/contextkey"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Special OutputPath values. Anything else is treated as a file path.
const (
	OutputStdout  = "stdout"
	OutputStderr  = "stderr"
	OutputDiscard = "discard"
)

var global atomic.Pointer[Logger]

// Logger wraps zap and adds the trace, request and run ids carried by ctx.
type Logger struct {
	zap *zap.Logger
}

// Config holds logger configuration
type Config struct {
	Level      string `yaml:"level"`      // debug, info, warn, error
	Format     string `yaml:"format"`     // json, console
	OutputPath string `yaml:"outputPath"` // file path, stdout, stderr or discard
}

// Init replaces the global logger. Until it is called all package-level
// helpers are no-ops.
func Init(cfg Config) error {
	l, err := NewLogger(cfg)
	if err != nil {
		return err
	}
	global.Store(l)
	return nil
}

// NewLogger builds a logger from cfg.
func NewLogger(cfg Config) (*Logger, error) {
	out, tty, err := openOutput(cfg.OutputPath)
	if err != nil {
		return nil, err
	}
	return newLogger(cfg, out, tty)
}

// NewWithWriter builds a logger writing to w, used by tests and embedders.
func NewWithWriter(cfg Config, w io.Writer) (*Logger, error) {
	return newLogger(cfg, zapcore.AddSync(w), false)
}

func newLogger(cfg Config, out zapcore.WriteSyncer, tty bool) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, fmt.Errorf("invalid log level: %w", err)
		}
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout(time.RFC3339),
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "json":
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case "", "console":
		if tty {
			encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		} else {
			encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		}
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("invalid log format: %q", cfg.Format)
	}

	core := zapcore.NewCore(encoder, out, level)
	return &Logger{zap: zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

func openOutput(path string) (zapcore.WriteSyncer, bool, error) {
	switch path {
	case "", OutputStdout:
		return zapcore.Lock(os.Stdout), true, nil
	case OutputStderr:
		return zapcore.Lock(os.Stderr), true, nil
	case OutputDiscard:
		return zapcore.AddSync(io.Discard), false, nil
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, false, fmt.Errorf("failed to open log file: %w", err)
	}
	return zapcore.AddSync(file), false, nil
}

// Sync flushes any buffered log entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

// WithContext returns a zap logger carrying the ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *zap.Logger {
	return l.zap.With(contextFields(ctx)...)
}

func contextFields(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	var fields []zap.Field
	for _, k := range []struct {
		key  interface{}
		name string
	}{
		{contextkey.TraceID, "trace_id"},
		{contextkey.RequestID, "request_id"},
		{contextkey.RunID, "run_id"},
	} {
		if v := ctx.Value(k.key); v != nil {
			fields = append(fields, zap.String(k.name, fmt.Sprint(v)))
		}
	}
	return fields
}

func Debug(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global.Load(); l != nil {
		l.WithContext(ctx).Debug(msg, fields...)
	}
}

func Info(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global.Load(); l != nil {
		l.WithContext(ctx).Info(msg, fields...)
	}
}

func Warn(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global.Load(); l != nil {
		l.WithContext(ctx).Warn(msg, fields...)
	}
}

func Error(ctx context.Context, msg string, fields ...zap.Field) {
	if l := global.Load(); l != nil {
		l.WithContext(ctx).Error(msg, fields...)
	}
}

// SetGlobal installs l, returning the previous logger.
func SetGlobal(l *Logger) *Logger {
	return global.Swap(l)
}

// Sync flushes the global logger
func Sync() error {
	if l := global.Load(); l != nil {
		return l.Sync()
	}
	return nil
}
