package svc

import (
	"context"
	"fmt"

	"gide/internal/common/storage"
	"gide/internal/config"
	"gide/internal/formatter"
	"gide/internal/judge"
	"gide/internal/language"
	"gide/internal/prefs"
	appErr "gide/pkg/errors"
	"gide/pkg/utils/logger"

	"go.uber.org/zap"
)

// ServiceContext wires the components shared by the CLI and the HTTP server.
type ServiceContext struct {
	Config    config.Config
	Languages *language.Registry
	KV        storage.KV
	Prefs     *prefs.Store
	Judge     *judge.Client
	Executor  *judge.Executor
	Formatter *formatter.Helper
}

// NewServiceContext opens the configured storage backend and builds every
// component on top of it.
func NewServiceContext(c config.Config) (*ServiceContext, error) {
	kv, err := storage.Open(c.Storage)
	if err != nil {
		return nil, fmt.Errorf("open %s storage failed: %w", c.Storage.Driver, err)
	}
	svcCtx, err := NewServiceContextWithKV(c, kv)
	if err != nil {
		_ = kv.Close()
		return nil, err
	}
	return svcCtx, nil
}

// NewServiceContextWithKV builds the components on an already opened store.
func NewServiceContextWithKV(c config.Config, kv storage.KV, opts ...judge.ExecutorOption) (*ServiceContext, error) {
	languages := language.Builtin()

	guard, err := judge.NewGuard(c.Run.Policy)
	if err != nil {
		return nil, err
	}
	client := judge.NewClient(c.Judge, languages)
	executor := judge.NewExecutor(client, c.Poll, append([]judge.ExecutorOption{judge.WithGuard(guard)}, opts...)...)

	var storeOpts []prefs.Option
	if c.Storage.Prefix != "" {
		storeOpts = append(storeOpts, prefs.WithKeyPrefix(c.Storage.Prefix))
	}

	return &ServiceContext{
		Config:    c,
		Languages: languages,
		KV:        kv,
		Prefs:     prefs.NewStore(kv, languages, storeOpts...),
		Judge:     client,
		Executor:  executor,
		Formatter: formatter.NewHelper(newPrimaryFormatter(c.Formatter), languages),
	}, nil
}

func newPrimaryFormatter(c config.FormatterConfig) formatter.Formatter {
	if c.Command == "" {
		return nil
	}
	cmd, err := formatter.NewCommand(c.Command, c.Timeout)
	if err != nil {
		logger.Warn(context.Background(), "invalid formatter command, using fallback only",
			zap.String("command", c.Command), zap.Error(err))
		return nil
	}
	return cmd
}

// RunContext bounds a single execution by the configured run timeout.
func (s *ServiceContext) RunContext(parent context.Context) (context.Context, context.CancelFunc) {
	if s.Config.Run.Timeout > 0 {
		return context.WithTimeout(parent, s.Config.Run.Timeout)
	}
	return context.WithCancel(parent)
}

// CheckRun validates a run request before it reaches the judge.
func (s *ServiceContext) CheckRun(req judge.Request) error {
	if limit := s.Config.Run.MaxCodeBytes; limit > 0 && len(req.SourceCode) > limit {
		return appErr.Newf(appErr.CodeTooLarge, "source code is %d bytes, limit is %d", len(req.SourceCode), limit)
	}
	if !s.Languages.Supports(req.Language) {
		return appErr.UnsupportedLanguage(req.Language)
	}
	return nil
}

// Close releases the storage backend.
func (s *ServiceContext) Close() error {
	if s.KV == nil {
		return nil
	}
	return s.KV.Close()
}
