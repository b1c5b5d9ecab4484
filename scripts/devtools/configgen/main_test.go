package main

import (
	"os"
	"path/filepath"
	"testing"

	"gide/internal/config"
	"gide/internal/judge"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s failed: %v", name, err)
	}
	return path
}

func TestMergeMapIsDeep(t *testing.T) {
	base := map[string]interface{}{
		"storage": map[string]interface{}{"driver": "file", "path": "a.json"},
		"run":     map[string]interface{}{"policy": "reject"},
	}
	override := map[string]interface{}{
		"storage": map[string]interface{}{"driver": "memory"},
		"cli":     map[string]interface{}{"prompt": "> "},
	}
	merged, err := mergeMap(base, override)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	root := merged.(map[string]interface{})
	storage := root["storage"].(map[string]interface{})
	if storage["driver"] != "memory" || storage["path"] != "a.json" {
		t.Fatalf("unexpected storage section: %v", storage)
	}
	if root["run"].(map[string]interface{})["policy"] != "reject" || root["cli"] == nil {
		t.Fatalf("unexpected merge: %v", root)
	}
	if base["storage"].(map[string]interface{})["driver"] != "file" {
		t.Fatalf("base map was mutated")
	}

	if _, err := mergeMap([]interface{}{}, override); err == nil {
		t.Fatalf("expected error for non-map base")
	}
}

func TestRenderWritesValidatedTargets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", `
judge:
  apiHost: "judge0-ce.p.rapidapi.com"
storage:
  driver: "file"
  path: "state.json"
`)
	profile := writeFile(t, dir, "profile.yaml", `
outputDir: "out"
judge:
  baseURL: "http://localhost:2358"
targets:
  cli:
    base: "base.yaml"
  server:
    base: "base.yaml"
    output: "server.yaml"
    overrides:
      storage:
        driver: "memory"
      run:
        policy: "queue"
`)

	written, err := render(profile, "")
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if len(written) != 2 {
		t.Fatalf("expected 2 files, got %v", written)
	}
	if written[0] != filepath.Join(dir, "out", "base.yaml") || written[1] != filepath.Join(dir, "out", "server.yaml") {
		t.Fatalf("unexpected output paths: %v", written)
	}

	cfg, err := config.Load(written[1])
	if err != nil {
		t.Fatalf("load generated config failed: %v", err)
	}
	if cfg.Storage.Driver != "memory" || cfg.Run.Policy != judge.PolicyQueue {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.Judge.BaseURL != "http://localhost:2358" || cfg.Judge.APIHost != "" {
		t.Fatalf("shared judge not applied: %+v", cfg.Judge)
	}
}

func TestRenderRejectsInvalidTarget(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.yaml", "storage:\n  driver: \"etcd\"\n")
	profile := writeFile(t, dir, "profile.yaml", "outputDir: out\ntargets:\n  cli:\n    base: base.yaml\n")
	if _, err := render(profile, ""); err == nil {
		t.Fatalf("expected validation error")
	}

	empty := writeFile(t, dir, "empty.yaml", "outputDir: out\n")
	if _, err := render(empty, ""); err == nil {
		t.Fatalf("expected error for profile without targets")
	}
}
