package repl

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"gide/internal/judge"

	"github.com/fatih/color"
	"github.com/google/shlex"
)

type palette struct {
	ok      *color.Color
	info    *color.Color
	warn    *color.Color
	fail    *color.Color
	compile *color.Color
	runtime *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		ok:      color.New(color.FgGreen),
		info:    color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed),
		compile: color.New(color.FgRed, color.Bold),
		runtime: color.New(color.FgMagenta, color.Bold),
	}
	if !enabled {
		for _, c := range []*color.Color{p.ok, p.info, p.warn, p.fail, p.compile, p.runtime} {
			c.DisableColor()
		}
	}
	return p
}

func (s *Session) renderResult(result judge.Normalized) {
	switch result.Kind {
	case judge.KindCompileError:
		s.printLine("%s", s.colors.compile.Sprint("compilation error:"))
		s.printLine("%s", s.colors.fail.Sprint(result.Text()))
	case judge.KindRuntimeError:
		s.printLine("%s", s.colors.runtime.Sprint("runtime error:"))
		s.printLine("%s", s.colors.fail.Sprint(result.Text()))
	case judge.KindNoResult:
		s.printLine("%s", s.colors.warn.Sprint(result.Text()))
	default:
		s.printLine("%s", result.Text())
		if result.Error != nil {
			s.printLine("%s", s.colors.warn.Sprint("stderr:"))
			s.printLine("%s", s.colors.warn.Sprint(*result.Error))
		}
	}
}

// runCommand runs cmdline with extra args attached to the terminal.
func runCommand(ctx context.Context, cmdline string, args ...string) error {
	argv, err := shlex.Split(cmdline)
	if err != nil {
		return fmt.Errorf("parse command failed: %w", err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("empty command")
	}
	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], args...)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
