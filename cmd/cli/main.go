package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gide/internal/cli/command"
	"gide/internal/cli/repl"
	"gide/internal/common/storage"
	"gide/internal/config"
	"gide/internal/judge"
	"gide/internal/svc"
	"gide/pkg/utils/logger"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "gide",
		Usage: "edit, format and run code against a remote judge",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: config.DefaultPath, Usage: "path to config file (.yaml or .toml)"},
			&cli.StringFlag{Name: "env", Value: ".env", Usage: "path to env file with the judge API key"},
			&cli.StringFlag{Name: "judge", Usage: "override judge base URL"},
			&cli.StringFlag{Name: "storage", Usage: "override storage driver (file|memory|redis|minio)"},
			&cli.StringFlag{Name: "state", Usage: "override file storage path"},
			&cli.StringFlag{Name: "policy", Usage: "override concurrent run policy (reject|queue|race)"},
			&cli.BoolFlag{Name: "no-color", Usage: "disable colored output"},
		},
		Action: interactive,
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "execute a source file once and print its output",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "lang", Usage: "language, inferred from the file extension when empty"},
					&cli.StringFlag{Name: "stdin-file", Usage: "file fed to the program as stdin"},
				},
				Action: runFile,
			},
			{
				Name:      "fmt",
				Usage:     "format a source file",
				ArgsUsage: "<file>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "lang", Usage: "language, inferred from the file extension when empty"},
					&cli.BoolFlag{Name: "write", Aliases: []string{"w"}, Usage: "rewrite the file instead of printing"},
				},
				Action: formatFile,
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// setup loads config and builds services. The caller closes the result.
func setup(cmd *cli.Command) (*svc.ServiceContext, error) {
	if err := config.LoadDotEnv(cmd.String("env")); err != nil {
		return nil, err
	}
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	if v := cmd.String("judge"); v != "" {
		cfg.Judge.BaseURL = v
	}
	if v := cmd.String("storage"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := cmd.String("state"); v != "" {
		cfg.Storage.Path = v
	}
	if cfg.Storage.Driver == storage.DriverFile && cfg.Storage.Path == "" {
		cfg.Storage.Path = storage.DefaultFilePath
	}
	if v := cmd.String("policy"); v != "" {
		cfg.Run.Policy = judge.Policy(v)
	}
	if cmd.Bool("no-color") {
		off := false
		cfg.CLI.Color = &off
	}
	// Interactive output owns stdout.
	if cfg.Logger.OutputPath == "" || cfg.Logger.OutputPath == logger.OutputStdout {
		cfg.Logger.OutputPath = logger.OutputStderr
	}
	if err := logger.Init(cfg.Logger); err != nil {
		return nil, fmt.Errorf("init logger failed: %w", err)
	}

	svcCtx, err := svc.NewServiceContext(cfg)
	if err != nil {
		return nil, fmt.Errorf("init services failed: %w", err)
	}
	return svcCtx, nil
}

func interactive(ctx context.Context, cmd *cli.Command) error {
	svcCtx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = svcCtx.Close() }()

	session := repl.New(svcCtx, os.Stdout)
	defer session.Close()
	return session.Run(ctx)
}

func runFile(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("usage: gide run <file>", 2)
	}
	svcCtx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = svcCtx.Close() }()

	req, err := command.BuildRunRequest(svcCtx.Languages, path, cmd.String("lang"), cmd.String("stdin-file"))
	if err != nil {
		return err
	}
	if err := svcCtx.CheckRun(req); err != nil {
		return err
	}
	runCtx, cancel := svcCtx.RunContext(ctx)
	defer cancel()
	result, err := svcCtx.Executor.Run(runCtx, req, nil)
	if err != nil {
		return err
	}

	switch result.Kind {
	case judge.KindCompileError, judge.KindRuntimeError, judge.KindNoResult:
		return cli.Exit(result.Text(), 1)
	}
	fmt.Fprintln(os.Stdout, result.Text())
	if result.Error != nil {
		fmt.Fprintln(os.Stderr, *result.Error)
	}
	return nil
}

func formatFile(ctx context.Context, cmd *cli.Command) error {
	path := cmd.Args().First()
	if path == "" {
		return cli.Exit("usage: gide fmt <file>", 2)
	}
	svcCtx, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = svcCtx.Close() }()

	req, err := command.BuildRunRequest(svcCtx.Languages, path, cmd.String("lang"), "")
	if err != nil {
		return err
	}
	outcome := svcCtx.Formatter.FormatWithFallback(ctx, req.SourceCode, req.Language)
	if outcome.UsedFallback {
		fmt.Fprintf(os.Stderr, "formatter unavailable, reindented only: %v\n", outcome.Cause)
	}
	if !cmd.Bool("write") {
		fmt.Fprint(os.Stdout, outcome.Code)
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(outcome.Code), info.Mode().Perm())
}
