package repl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gide/internal/cli/command"
	"gide/internal/judge"
	"gide/internal/language"
	"gide/internal/prefs"
	"gide/internal/shortcut"
	appErr "gide/pkg/errors"

	"gopkg.in/yaml.v3"
)

func (s *Session) dispatch(ctx context.Context, cmd command.Command, params command.Params) error {
	switch cmd.Key() {
	case "run":
		return s.run(ctx, params)
	case "fmt":
		return s.format(ctx)
	case "save":
		return s.save(ctx)
	case "open":
		return s.open(ctx, params.Get("file"))
	case "edit":
		return s.editBuffer(ctx)
	case "show code":
		s.showCode()
	case "show prefs":
		s.showPrefs(ctx)
	case "show config":
		return s.showConfig()
	case "set theme":
		return s.setTheme(ctx, params.Get("value"))
	case "set font":
		return s.setFont(ctx, params.Get("value"))
	case "set lang":
		return s.setLanguage(ctx, params.Get("value"))
	case "font +":
		return s.stepFont(ctx, prefs.IncreaseFontSize)
	case "font -":
		return s.stepFont(ctx, prefs.DecreaseFontSize)
	case "theme toggle":
		return s.toggleTheme(ctx)
	case "snippet save":
		return s.saveSnippet(ctx, params.Get("name"))
	case "snippet load":
		return s.loadSnippet(ctx, params.Get("name"))
	case "snippet list":
		s.listSnippets(ctx)
	case "snippet delete":
		return s.deleteSnippet(ctx, params.Get("name"))
	case "key":
		return s.sendKey(params.Get("chord"))
	default:
		return fmt.Errorf("unknown command: %s", cmd.Key())
	}
	return nil
}

func (s *Session) run(ctx context.Context, params command.Params) error {
	if path := params.Get("stdin_file"); path != "" {
		content, err := command.ReadFile(path)
		if err != nil {
			return err
		}
		params.Set("stdin", content)
	}
	state := s.update(func(b *buffer) {
		if params.Has("stdin") {
			b.stdin = params.Get("stdin")
		}
	})
	req := judge.Request{SourceCode: state.code, Language: state.language, Stdin: state.stdin}
	if err := s.svc.CheckRun(req); err != nil {
		return err
	}

	runCtx, cancel := s.svc.RunContext(ctx)
	defer cancel()
	s.printLine("%s", s.colors.info.Sprintf("running %s...", state.language))
	result, err := s.svc.Executor.Run(runCtx, req, s.observe)
	if err != nil {
		return err
	}
	s.renderResult(result)
	return nil
}

func (s *Session) observe(t judge.Transition) {
	switch t.State {
	case judge.StatePolling:
		if t.Status != nil {
			s.printLine("%s", s.colors.info.Sprintf("  %s", t.Status.Description))
		} else {
			s.printLine("%s", s.colors.info.Sprintf("  submitted %s", t.Token))
		}
	}
}

func (s *Session) format(ctx context.Context) error {
	state := s.current()
	outcome := s.svc.Formatter.FormatWithFallback(ctx, state.code, state.language)
	s.update(func(b *buffer) { b.code = outcome.Code })
	if outcome.UsedFallback {
		s.printLine("%s", s.colors.warn.Sprintf("formatter unavailable (%v), reindented instead", outcome.Cause))
	}
	s.printLine("%s", outcome.Code)
	return s.persistCode(ctx)
}

func (s *Session) save(ctx context.Context) error {
	if err := s.persistCode(ctx); err != nil {
		return err
	}
	s.printLine("%s", s.colors.ok.Sprint("saved"))
	return nil
}

func (s *Session) persistCode(ctx context.Context) error {
	if !s.svc.Prefs.SaveCode(ctx, s.current().code) {
		return appErr.New(appErr.PersistenceFailed).WithMessage("code kept in memory but could not be saved")
	}
	return nil
}

func (s *Session) open(ctx context.Context, path string) error {
	content, err := command.ReadFile(path)
	if err != nil {
		return err
	}
	lang, detected := s.svc.Languages.FromFilename(path)
	state := s.update(func(b *buffer) {
		b.code = content
		if detected {
			b.language = lang.Name
		}
	})
	if detected {
		s.svc.Prefs.SaveLanguage(ctx, state.language)
	}
	s.printLine("loaded %s (%d bytes, %s)", path, len(content), state.language)
	return s.persistCode(ctx)
}

func (s *Session) editBuffer(ctx context.Context) error {
	state := s.current()
	ext := ".txt"
	if lang, ok := s.svc.Languages.Lookup(state.language); ok {
		ext = lang.FileExtension
	}
	dir, err := os.MkdirTemp("", "gide-edit-")
	if err != nil {
		return fmt.Errorf("create temp dir failed: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "main"+ext)
	if err := os.WriteFile(path, []byte(state.code), 0o600); err != nil {
		return fmt.Errorf("write temp file failed: %w", err)
	}
	if err := s.edit(ctx, path); err != nil {
		return fmt.Errorf("editor failed: %w", err)
	}
	content, err := command.ReadFile(path)
	if err != nil {
		return err
	}
	s.update(func(b *buffer) { b.code = content })
	s.printLine("buffer updated (%d bytes)", len(content))
	return s.persistCode(ctx)
}

func (s *Session) showCode() {
	code := s.current().code
	if code == "" {
		s.printLine("<empty buffer>")
		return
	}
	s.printLine("%s", code)
}

func (s *Session) showPrefs(ctx context.Context) {
	state := s.current()
	s.printLine("language:  %s", state.language)
	s.printLine("theme:     %s", state.theme)
	s.printLine("font size: %d", state.fontSize)
	s.printLine("code:      %d bytes", len(state.code))
	if snap := s.svc.Prefs.Load(ctx); len(snap.Defaulted()) > 0 {
		s.printLine("defaults:  %s", strings.Join(snap.Defaulted(), ", "))
	}
}

func (s *Session) showConfig() error {
	data, err := yaml.Marshal(s.svc.Config.Redacted())
	if err != nil {
		return fmt.Errorf("render config failed: %w", err)
	}
	s.printLine("%s", strings.TrimRight(string(data), "\n"))
	return nil
}

func (s *Session) setTheme(ctx context.Context, theme string) error {
	theme = strings.TrimSpace(theme)
	if theme == "" {
		return appErr.ValidationError("theme", "required")
	}
	s.update(func(b *buffer) { b.theme = theme })
	return s.persisted(s.svc.Prefs.SaveTheme(ctx, theme), "theme set to %s", theme)
}

func (s *Session) setFont(ctx context.Context, value string) error {
	size, err := command.ParseInt(value)
	if err != nil || size <= 0 {
		return appErr.ValidationError("font", "must be a positive integer")
	}
	s.update(func(b *buffer) { b.fontSize = size })
	return s.persisted(s.svc.Prefs.SaveFontSize(ctx, size), "font size set to %d", size)
}

func (s *Session) setLanguage(ctx context.Context, name string) error {
	name = language.Normalize(name)
	if !s.svc.Languages.Supports(name) {
		return appErr.UnsupportedLanguage(name).WithDetail("supported", s.svc.Languages.Names())
	}
	s.update(func(b *buffer) { b.language = name })
	return s.persisted(s.svc.Prefs.SaveLanguage(ctx, name), "language set to %s", name)
}

func (s *Session) stepFont(ctx context.Context, step func(int) int) error {
	state := s.update(func(b *buffer) { b.fontSize = step(b.fontSize) })
	return s.persisted(s.svc.Prefs.SaveFontSize(ctx, state.fontSize), "font size %d", state.fontSize)
}

func (s *Session) toggleTheme(ctx context.Context) error {
	state := s.update(func(b *buffer) { b.theme = prefs.NextTheme(b.theme) })
	return s.persisted(s.svc.Prefs.SaveTheme(ctx, state.theme), "theme %s", state.theme)
}

func (s *Session) persisted(ok bool, format string, args ...interface{}) error {
	if !ok {
		return appErr.New(appErr.PersistenceFailed).WithMessage("change applied but could not be saved")
	}
	s.printLine(format, args...)
	return nil
}

func (s *Session) saveSnippet(ctx context.Context, name string) error {
	state := s.current()
	if !s.svc.Prefs.SaveSnippet(ctx, name, prefs.Snippet{Code: state.code, Language: state.language}) {
		return appErr.New(appErr.PersistenceFailed).WithMessagef("snippet %q was not saved", name)
	}
	s.printLine("%s", s.colors.ok.Sprintf("snippet %q saved", name))
	return nil
}

func (s *Session) loadSnippet(ctx context.Context, name string) error {
	snippet, ok := s.svc.Prefs.GetSnippet(ctx, name)
	if !ok {
		return appErr.New(appErr.SnippetNotFound).WithMessagef("snippet %q not found", name)
	}
	s.update(func(b *buffer) {
		b.code = snippet.Code
		if s.svc.Languages.Supports(snippet.Language) {
			b.language = snippet.Language
		}
	})
	s.svc.Prefs.SaveLanguage(ctx, s.current().language)
	s.printLine("loaded snippet %q (%s)", name, snippet.Language)
	return s.persistCode(ctx)
}

func (s *Session) listSnippets(ctx context.Context) {
	loaded := s.svc.Prefs.LoadSnippets(ctx)
	if loaded.Err != nil {
		s.printLine("%s", s.colors.warn.Sprintf("warning: %v", loaded.Err))
	}
	names := prefs.SnippetNames(loaded.Value)
	if len(names) == 0 {
		s.printLine("no snippets")
		return
	}
	for _, name := range names {
		sn := loaded.Value[name]
		s.printLine("  %-24s %-7s %s", name, sn.Language, sn.Timestamp.Local().Format("2006-01-02 15:04:05"))
	}
}

func (s *Session) deleteSnippet(ctx context.Context, name string) error {
	existed, err := s.svc.Prefs.DeleteSnippet(ctx, name)
	if err != nil {
		return err
	}
	if !existed {
		return appErr.New(appErr.SnippetNotFound).WithMessagef("snippet %q not found", name)
	}
	s.printLine("snippet %q deleted", name)
	return nil
}

func (s *Session) sendKey(chord string) error {
	ev, err := shortcut.ParseChord(chord)
	if err != nil {
		return err
	}
	s.bus.Dispatch(ev)
	if !ev.DefaultPrevented() {
		s.printLine("no action bound to %s", chord)
	}
	return nil
}
