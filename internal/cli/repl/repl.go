package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"gide/internal/cli/command"
	"gide/internal/prefs"
	"gide/internal/shortcut"
	"gide/internal/svc"
	"gide/pkg/utils/logger"

	"github.com/chzyer/readline"
	"github.com/google/shlex"
	"go.uber.org/zap"
)

// ErrExit is returned by Execute when the user asks to leave.
var ErrExit = errors.New("exit")

// Prompter asks the user for a single value.
type Prompter func(label string) (string, error)

// EditorRunner opens path in an external editor and waits for it to exit.
type EditorRunner func(ctx context.Context, path string) error

type buffer struct {
	code     string
	language string
	theme    string
	fontSize int
	stdin    string
}

// Session holds REPL state.
type Session struct {
	svc      *svc.ServiceContext
	commands map[string]command.Command
	bus      *shortcut.Bus
	colors   palette

	outMu        sync.Mutex
	outputWriter *bufio.Writer

	mu    sync.Mutex
	state buffer

	ctx      context.Context
	prompt   Prompter
	edit     EditorRunner
	actions  chan func()
	teardown func()
}

// Option customizes a Session.
type Option func(*Session)

func WithPrompter(p Prompter) Option {
	return func(s *Session) { s.prompt = p }
}

func WithEditorRunner(r EditorRunner) Option {
	return func(s *Session) { s.edit = r }
}

func New(svcCtx *svc.ServiceContext, out io.Writer, opts ...Option) *Session {
	s := &Session{
		svc:          svcCtx,
		commands:     command.Registry(),
		bus:          shortcut.NewBus(),
		colors:       newPalette(svcCtx.Config.ColorEnabled()),
		outputWriter: bufio.NewWriter(out),
		ctx:          context.Background(),
		prompt: func(label string) (string, error) {
			return "", fmt.Errorf("missing value for %s", label)
		},
		actions: make(chan func(), 8),
	}
	s.edit = s.runEditor
	for _, opt := range opts {
		opt(s)
	}
	s.teardown = shortcut.Register(s.bus, shortcut.Handlers{
		OnSave:             func() { s.report(s.save(s.ctx)) },
		OnRun:              func() { s.report(s.run(s.ctx, command.Params{})) },
		OnFormat:           func() { s.report(s.format(s.ctx)) },
		OnToggleTheme:      func() { s.report(s.toggleTheme(s.ctx)) },
		OnIncreaseFontSize: func() { s.report(s.stepFont(s.ctx, prefs.IncreaseFontSize)) },
		OnDecreaseFontSize: func() { s.report(s.stepFont(s.ctx, prefs.DecreaseFontSize)) },
	})
	return s
}

// Init restores the editor state from the preference store.
func (s *Session) Init(ctx context.Context) {
	s.ctx = ctx
	snap := s.svc.Prefs.Load(ctx)
	p := snap.Preferences()

	s.mu.Lock()
	s.state = buffer{code: p.Code, language: p.Language, theme: p.Theme, fontSize: p.FontSize}
	s.mu.Unlock()

	for _, err := range []error{snap.Code.Err, snap.Language.Err, snap.Theme.Err, snap.FontSize.Err} {
		if err != nil {
			s.printLine("%s", s.colors.warn.Sprintf("warning: %v (using default)", err))
		}
	}
}

// Close detaches the shortcut listener.
func (s *Session) Close() {
	if s.teardown != nil {
		s.teardown()
	}
}

// Run starts the interactive loop on the terminal.
func (s *Session) Run(ctx context.Context) error {
	cfg := s.svc.Config.CLI
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:              cfg.Prompt,
		HistoryFile:         cfg.HistoryFile,
		InterruptPrompt:     "^C",
		EOFPrompt:           "exit",
		HistorySearchFold:   true,
		FuncFilterInputRune: s.inputFilter(ctx),
	})
	if err != nil {
		return fmt.Errorf("init line editor failed: %w", err)
	}
	defer func() { _ = rl.Close() }()

	s.outMu.Lock()
	s.outputWriter = bufio.NewWriter(rl.Stdout())
	s.outMu.Unlock()
	s.prompt = func(label string) (string, error) {
		rl.SetPrompt(label + ": ")
		defer rl.SetPrompt(cfg.Prompt)
		line, err := rl.Readline()
		if err != nil {
			return "", fmt.Errorf("read input failed: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	// s.ctx is only read on the worker, which starts after Init.
	s.Init(ctx)
	go s.worker(ctx)

	s.printLine("gide: %s | %s | font %d. Type help for commands.", s.current().language, s.current().theme, s.current().fontSize)
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			s.printLine("bye")
			return nil
		}
		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrExit) {
				s.printLine("bye")
				return nil
			}
			s.report(err)
		}
	}
}

// inputFilter returns the rune filter for the line editor. It runs on the
// editor's own goroutine, so it touches only ctx and the actions channel;
// shortcut work is handed to the worker so typing is never blocked by a run.
func (s *Session) inputFilter(ctx context.Context) func(rune) (rune, bool) {
	return func(r rune) (rune, bool) {
		ev, ok := shortcut.FromTerminalRune(r)
		if !ok {
			return r, true
		}
		select {
		case s.actions <- func() { s.bus.Dispatch(ev) }:
		default:
			logger.Warn(ctx, "shortcut dropped, worker busy", zap.String("key", ev.Key))
		}
		return r, false
	}
}

func (s *Session) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case action := <-s.actions:
			action()
		}
	}
}

// Execute handles one input line.
func (s *Session) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	switch line {
	case "exit", "quit":
		return ErrExit
	case "help":
		s.printHelp()
		return nil
	}

	tokens, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	cmd, params, err := command.Resolve(s.commands, tokens)
	if err != nil {
		return err
	}
	if err := s.promptMissing(&cmd, params); err != nil {
		return err
	}
	return s.dispatch(ctx, cmd, params)
}

func (s *Session) promptMissing(cmd *command.Command, params command.Params) error {
	for _, field := range cmd.Fields {
		if !field.Required {
			continue
		}
		if params.Has(field.Name) && params.Get(field.Name) != "" {
			continue
		}
		value, err := s.prompt(field.Prompt)
		if err != nil {
			return err
		}
		params.Set(field.Name, value)
	}
	return nil
}

func (s *Session) current() buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) update(fn func(*buffer)) buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	return s.state
}

func (s *Session) report(err error) {
	if err != nil {
		s.printLine("%s", s.colors.fail.Sprintf("error: %v", err))
	}
}

func (s *Session) printHelp() {
	s.printLine("commands:")
	for _, cmd := range command.Sorted(s.commands) {
		s.printLine("  %-36s %s", cmd.Usage(), cmd.Summary)
	}
	s.printLine("  %-36s %s", "help | exit", "")
	s.printLine("shortcuts (Ctrl+S and Ctrl+R work while typing, others via key <chord>):")
	for _, line := range strings.Split(shortcut.Help(), "\n") {
		s.printLine("  %s", line)
	}
}

func (s *Session) printLine(format string, args ...interface{}) {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	_, _ = fmt.Fprintf(s.outputWriter, format+"\n", args...)
	_ = s.outputWriter.Flush()
}

func (s *Session) runEditor(ctx context.Context, path string) error {
	editor := s.svc.Config.CLI.Editor
	if editor == "" {
		editor = os.Getenv("EDITOR")
	}
	if editor == "" {
		return fmt.Errorf("no editor configured, set $EDITOR or cli.editor")
	}
	return runCommand(ctx, editor, path)
}
