package repl_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gide/internal/cli/repl"
	"gide/internal/svc"
	"gide/internal/testutil"
	appErr "gide/pkg/errors"
)

type harness struct {
	session *repl.Session
	svc     *svc.ServiceContext
	out     *bytes.Buffer
	judge   *testutil.JudgeServer
	prompts []string
}

func newHarness(t *testing.T, opts ...repl.Option) *harness {
	t.Helper()
	h := &harness{out: &bytes.Buffer{}, judge: testutil.NewJudgeServer(t)}
	h.svc = testutil.NewServiceContext(t, h.judge.URL, nil)

	prompter := repl.WithPrompter(func(label string) (string, error) {
		h.prompts = append(h.prompts, label)
		return "prompted", nil
	})
	h.session = repl.New(h.svc, h.out, append([]repl.Option{prompter}, opts...)...)
	h.session.Init(context.Background())
	t.Cleanup(h.session.Close)
	return h
}

func (h *harness) exec(t *testing.T, line string) {
	t.Helper()
	if err := h.session.Execute(context.Background(), line); err != nil {
		t.Fatalf("%q failed: %v", line, err)
	}
}

func (h *harness) takeOutput() string {
	out := h.out.String()
	h.out.Reset()
	return out
}

func writeEditor(content string) repl.Option {
	return repl.WithEditorRunner(func(ctx context.Context, path string) error {
		return os.WriteFile(path, []byte(content), 0o600)
	})
}

func TestRunPrintsOutput(t *testing.T) {
	h := newHarness(t, writeEditor("int main() { return 0; }"))
	h.exec(t, "edit")
	h.exec(t, `run stdin="1 2"`)

	out := h.takeOutput()
	if !strings.Contains(out, "42") {
		t.Fatalf("expected program output, got:\n%s", out)
	}
	body := h.judge.Bodies()[0]
	if body["stdin"] != "1 2" || body["language_id"] != float64(54) || body["source_code"] != "int main() { return 0; }" {
		t.Fatalf("unexpected submission: %v", body)
	}

	h.exec(t, "run")
	if h.judge.Bodies()[1]["stdin"] != "1 2" {
		t.Fatalf("expected stdin to be remembered, got %v", h.judge.Bodies()[1]["stdin"])
	}
}

func TestRunRendersCompileError(t *testing.T) {
	h := newHarness(t)
	h.judge.SetResults(`{"status":{"id":6,"description":"Compilation Error"},"compile_output":"main.cpp:1: error: expected ';'"}`)
	h.exec(t, "run")

	out := h.takeOutput()
	if !strings.Contains(out, "compilation error:") || !strings.Contains(out, "expected ';'") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRunWithStdinFile(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "in.txt")
	if err := os.WriteFile(path, []byte("5\n"), 0o600); err != nil {
		t.Fatalf("write stdin file failed: %v", err)
	}
	h.exec(t, "run stdin_file="+path)
	if h.judge.Bodies()[0]["stdin"] != "5\n" {
		t.Fatalf("expected stdin from file, got %v", h.judge.Bodies()[0]["stdin"])
	}
}

func TestSetCommandsPersist(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.exec(t, "set lang python")
	h.exec(t, "set theme monokai")
	h.exec(t, "set font 18")

	prefs := h.svc.Prefs.Load(ctx).Preferences()
	if prefs.Language != "python" || prefs.Theme != "monokai" || prefs.FontSize != 18 {
		t.Fatalf("unexpected prefs: %+v", prefs)
	}

	err := h.session.Execute(ctx, "set lang ruby")
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got %v", err)
	}
	if err := h.session.Execute(ctx, "set font big"); !appErr.Is(err, appErr.ValidationFailed) {
		t.Fatalf("expected ValidationFailed, got %v", err)
	}
}

func TestFontAndThemeSteps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.exec(t, "font +")
	if got := h.svc.Prefs.LoadFontSize(ctx).Value; got != 16 {
		t.Fatalf("expected 16, got %d", got)
	}
	h.exec(t, "set font 9")
	h.exec(t, "font -")
	if got := h.svc.Prefs.LoadFontSize(ctx).Value; got != 8 {
		t.Fatalf("expected floor 8, got %d", got)
	}
	h.exec(t, "theme toggle")
	if got := h.svc.Prefs.LoadTheme(ctx).Value; got != "solarized_dark" {
		t.Fatalf("expected solarized_dark, got %s", got)
	}
}

func TestKeyChordsDispatchShortcuts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.exec(t, "key ctrl+shift+l")
	if got := h.svc.Prefs.LoadTheme(ctx).Value; got != "solarized_dark" {
		t.Fatalf("expected theme toggle, got %s", got)
	}
	h.exec(t, "key ctrl+=")
	if got := h.svc.Prefs.LoadFontSize(ctx).Value; got != 16 {
		t.Fatalf("expected font increase, got %d", got)
	}
	h.takeOutput()
	h.exec(t, "key ctrl+q")
	if out := h.takeOutput(); !strings.Contains(out, "no action bound to ctrl+q") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestSnippetLifecycle(t *testing.T) {
	h := newHarness(t, writeEditor("print('hi')"))
	ctx := context.Background()

	h.exec(t, "set lang python")
	h.exec(t, "edit")
	h.exec(t, `snippet save "hello world"`)
	h.exec(t, "set lang java")

	h.takeOutput()
	h.exec(t, "snippet list")
	if out := h.takeOutput(); !strings.Contains(out, "hello world") {
		t.Fatalf("expected snippet in list, got %s", out)
	}

	h.exec(t, `snippet load "name=hello world"`)
	if got := h.svc.Prefs.LoadLanguage(ctx).Value; got != "python" {
		t.Fatalf("expected language from snippet, got %s", got)
	}
	h.exec(t, `snippet delete "name=hello world"`)
	if err := h.session.Execute(ctx, "snippet load name=missing"); !appErr.Is(err, appErr.SnippetNotFound) {
		t.Fatalf("expected SnippetNotFound, got %v", err)
	}
}

func TestPromptsForMissingField(t *testing.T) {
	h := newHarness(t)
	h.exec(t, "snippet save")
	if len(h.prompts) != 1 || h.prompts[0] != "snippet name" {
		t.Fatalf("expected one prompt, got %v", h.prompts)
	}
	if _, ok := h.svc.Prefs.GetSnippet(context.Background(), "prompted"); !ok {
		t.Fatalf("expected snippet saved under prompted name")
	}
}

func TestOpenDetectsLanguage(t *testing.T) {
	h := newHarness(t)
	path := filepath.Join(t.TempDir(), "Main.java")
	if err := os.WriteFile(path, []byte("class Main {}"), 0o600); err != nil {
		t.Fatalf("write source failed: %v", err)
	}
	h.exec(t, "open "+path)

	snap := h.svc.Prefs.Load(context.Background())
	if snap.Language.Value != "java" || snap.Code.Value != "class Main {}" {
		t.Fatalf("unexpected state: %+v", snap.Preferences())
	}
}

func TestFormatFallsBack(t *testing.T) {
	h := newHarness(t, writeEditor("if (x) {\nfoo();\n}"))
	h.exec(t, "edit")
	h.takeOutput()
	h.exec(t, "fmt")

	out := h.takeOutput()
	if !strings.Contains(out, "reindented instead") || !strings.Contains(out, "if (x) {\n  foo();\n}") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if got := h.svc.Prefs.LoadCode(context.Background()).Value; got != "if (x) {\n  foo();\n}" {
		t.Fatalf("formatted code not persisted: %q", got)
	}
}

func TestSystemCommands(t *testing.T) {
	h := newHarness(t)
	if err := h.session.Execute(context.Background(), "quit"); !errors.Is(err, repl.ErrExit) {
		t.Fatalf("expected ErrExit, got %v", err)
	}
	h.exec(t, "help")
	out := h.takeOutput()
	if !strings.Contains(out, "Ctrl+S: Save") || !strings.Contains(out, "snippet save <name>") {
		t.Fatalf("unexpected help:\n%s", out)
	}
	h.exec(t, "show config")
	if out := h.takeOutput(); !strings.Contains(out, "judge:") {
		t.Fatalf("unexpected config output:\n%s", out)
	}
	if err := h.session.Execute(context.Background(), "deploy now"); err == nil {
		t.Fatalf("expected unknown command error")
	}
}
