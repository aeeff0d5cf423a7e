package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/shlex"
	"github.com/google/uuid"

	"github.com/k11v/emload/internal/amqputil"
	"github.com/k11v/emload/internal/applog"
	"github.com/k11v/emload/internal/apps3"
	"github.com/k11v/emload/internal/compile"
	"github.com/k11v/emload/internal/compile/compiledocker"
	"github.com/k11v/emload/internal/compile/compilefs"
	"github.com/k11v/emload/internal/compile/compiles3"
	"github.com/k11v/emload/internal/options"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:], os.Environ())
	stop()
	if err != nil {
		if exitErr := (*ExitError)(nil); errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				_, _ = fmt.Fprintf(os.Stderr, "error: %s\n", exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func run(ctx context.Context, stdout, stderr io.Writer, args []string, environ []string) error {
	cfg, err := parseConfig(environ)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	inv, shouldExit, err := parseArgs(args, stderr, cfg)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	logger, err := applog.New(inv.LogLevel, inv.LogFormat, stderr)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	slog.SetDefault(logger)

	opts, err := loadOptions(inv)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	if inv.Enqueue {
		return enqueue(ctx, stdout, cfg, inv, opts)
	}

	runner, err := newRunner(inv.Runner, cfg.DockerImage)
	if err != nil {
		return err
	}
	emitter, err := newEmitter(inv, cfg)
	if err != nil {
		return err
	}

	pipeline := &compile.Pipeline{
		Runner:  runner,
		Emitter: emitter,
		Logger:  logger,
		CC:      cfg.CC,
		CXX:     cfg.CXX,
	}
	result, err := pipeline.Transform(ctx, &compile.TransformParams{
		SourcePath: inv.SourcePath,
		Target:     inv.Target,
		Config:     opts.Config(),
		Format:     inv.Format,
	})
	if err != nil {
		if compilationErr := (*compile.CompilationError)(nil); errors.As(err, &compilationErr) {
			code := compilationErr.ExitCode
			if code <= 0 {
				code = 1
			}
			return &ExitError{Code: code, Message: err.Error()}
		}
		return err
	}
	logger.Info("transformed", "source", inv.SourcePath, "assets", result.Assets)

	return writeModule(stdout, inv.OutPath, result.Module)
}

// loadOptions reads the options file, if any, and appends the -extra-flags
// words after the file's own extra flags.
func loadOptions(inv *invocation) (*options.Options, error) {
	opts := &options.Options{}
	if inv.OptionsPath != "" {
		var err error
		opts, err = options.Load(inv.OptionsPath)
		if err != nil {
			return nil, err
		}
	}

	if inv.ExtraFlags != "" {
		words, err := shlex.Split(inv.ExtraFlags)
		if err != nil {
			return nil, fmt.Errorf("invalid extra flags: %w", err)
		}
		opts.ExtraFlags = append(opts.ExtraFlags, words...)
	}
	return opts, nil
}

func enqueue(ctx context.Context, stdout io.Writer, cfg *config, inv *invocation, opts *options.Options) error {
	sourcePath, err := filepath.Abs(inv.SourcePath)
	if err != nil {
		return err
	}

	m := &amqputil.CompileMessage{
		ID:         uuid.New(),
		SourcePath: sourcePath,
		Target:     inv.Target,
		Format:     string(inv.Format),
		Options:    opts,
	}
	client := amqputil.NewClient(cfg.AMQP.ConnectionString, amqputil.CompileQueue(cfg.Queue))
	if err = client.PublishCompile(ctx, m); err != nil {
		return err
	}

	slog.Info("enqueued", "id", m.ID, "source", sourcePath, "queue", cfg.Queue)
	_, err = fmt.Fprintln(stdout, m.ID)
	return err
}

func newRunner(name, dockerImage string) (compile.Runner, error) {
	if name == runnerDocker {
		return compiledocker.NewRunner(dockerImage)
	}
	return &compile.LocalRunner{}, nil
}

func newEmitter(inv *invocation, cfg *config) (compile.Emitter, error) {
	if inv.Assets == assetsS3 {
		client, err := apps3.NewClient(cfg.S3.ConnectionString)
		if err != nil {
			return nil, err
		}
		return compiles3.NewEmitter(client, cfg.S3.Bucket, ""), nil
	}
	return compilefs.NewEmitter(inv.AssetsDir), nil
}

func writeModule(stdout io.Writer, path, module string) error {
	if path == "" {
		_, err := io.WriteString(stdout, module)
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o777); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(module), 0o666)
}
