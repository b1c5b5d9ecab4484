package formatter

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	appErr "gide/pkg/errors"

	"github.com/google/shlex"
)

const DefaultTimeout = 5 * time.Second

// Options mirror the pretty-printer settings used for every language.
type Options struct {
	Parser         string
	PrintWidth     int
	TabWidth       int
	UseTabs        bool
	Semi           bool
	SingleQuote    bool
	TrailingComma  string
	BracketSpacing bool
	ArrowParens    string
}

// DefaultOptions returns the editor's formatting settings for parser.
func DefaultOptions(parser string) Options {
	return Options{
		Parser:         parser,
		PrintWidth:     80,
		TabWidth:       2,
		UseTabs:        false,
		Semi:           true,
		SingleQuote:    true,
		TrailingComma:  "es5",
		BracketSpacing: true,
		ArrowParens:    "avoid",
	}
}

// Args renders the options as prettier command line flags.
func (o Options) Args() []string {
	args := []string{
		"--parser", o.Parser,
		"--print-width", strconv.Itoa(o.PrintWidth),
		"--tab-width", strconv.Itoa(o.TabWidth),
		"--trailing-comma", o.TrailingComma,
		"--arrow-parens", o.ArrowParens,
	}
	if o.UseTabs {
		args = append(args, "--use-tabs")
	}
	if !o.Semi {
		args = append(args, "--no-semi")
	}
	if o.SingleQuote {
		args = append(args, "--single-quote")
	}
	if !o.BracketSpacing {
		args = append(args, "--no-bracket-spacing")
	}
	return args
}

// Formatter pretty-prints source code.
type Formatter interface {
	Format(ctx context.Context, code string, opts Options) (string, error)
}

// Command runs an external pretty-printer that reads code on stdin and
// writes the result to stdout.
type Command struct {
	argv    []string
	timeout time.Duration
}

// NewCommand splits cmdline with shell quoting rules.
func NewCommand(cmdline string, timeout time.Duration) (*Command, error) {
	argv, err := shlex.Split(cmdline)
	if err != nil {
		return nil, fmt.Errorf("parse formatter command: %w", err)
	}
	if len(argv) == 0 {
		return nil, appErr.New(appErr.FormatterUnavailable)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Command{argv: argv, timeout: timeout}, nil
}

// Format runs the command once.
func (c *Command) Format(ctx context.Context, code string, opts Options) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append(append([]string{}, c.argv[1:]...), opts.Args()...)
	cmd := exec.CommandContext(ctx, c.argv[0], args...)
	cmd.Stdin = strings.NewReader(code)
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", appErr.FromContext(ctxErr, "formatter")
		}
		var execErr *exec.Error
		if stderrors.As(err, &execErr) {
			return "", appErr.Wrapf(err, appErr.FormatterUnavailable, "formatter not available: %v", err)
		}
		return "", appErr.Wrapf(err, appErr.FormatFailed, "formatter failed: %s", firstLine(stderr.String(), err))
	}
	return stdout.String(), nil
}

func firstLine(s string, fallback error) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallback.Error()
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
