package testutil

import (
	"testing"

	"gide/internal/common/storage"
	"gide/internal/config"
	"gide/internal/judge"
	"gide/internal/svc"
)

// NewServiceContext builds services on an in-memory store, pointed at
// judgeURL and polling without delay. mutate may adjust the config first.
func NewServiceContext(t *testing.T, judgeURL string, mutate func(*config.Config)) *svc.ServiceContext {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	cfg.Judge.BaseURL = judgeURL
	noColor := false
	cfg.CLI.Color = &noColor
	if mutate != nil {
		mutate(&cfg)
	}
	svcCtx, err := svc.NewServiceContextWithKV(cfg, storage.NewMemoryKV(), judge.WithSleeper(NoWait))
	if err != nil {
		t.Fatalf("build service context failed: %v", err)
	}
	t.Cleanup(func() { _ = svcCtx.Close() })
	return svcCtx
}
