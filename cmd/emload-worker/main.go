package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/k11v/emload/internal/amqputil"
	"github.com/k11v/emload/internal/applog"
	"github.com/k11v/emload/internal/apppg"
	"github.com/k11v/emload/internal/apps3"
	"github.com/k11v/emload/internal/compile"
	"github.com/k11v/emload/internal/compile/compiledocker"
	"github.com/k11v/emload/internal/compile/compiles3"
	"github.com/k11v/emload/internal/journal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Environ())
	stop()
	if err != nil && !errors.Is(err, context.Canceled) {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(0)
}

func run(ctx context.Context, environ []string) error {
	cfg, err := parseConfig(environ)
	if err != nil {
		return err
	}

	logger, err := applog.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	pool, err := apppg.NewPool(ctx, cfg.Postgres.ConnectionString)
	if err != nil {
		return err
	}
	defer pool.Close()

	s3Client, err := apps3.NewClient(cfg.S3.ConnectionString)
	if err != nil {
		return err
	}

	var runner compile.Runner = &compile.LocalRunner{}
	if cfg.Runner == "docker" {
		runner, err = compiledocker.NewRunner(cfg.DockerImage)
		if err != nil {
			return err
		}
	}

	worker := &Worker{
		ConnectionString: cfg.AMQP.ConnectionString,
		Queue:            amqputil.CompileQueue(cfg.Queue),
		Handler: &Handler{
			Journal: journal.NewDatabase(pool),
			Runner:  runner,
			NewEmitter: func(prefix string) compile.Emitter {
				return compiles3.NewEmitter(s3Client, cfg.S3.Bucket, prefix)
			},
			CC:     cfg.CC,
			CXX:    cfg.CXX,
			Logger: logger,
		},
		Logger: logger,
	}

	logger.Info("starting worker", "queue", cfg.Queue, "runner", cfg.Runner)
	return worker.Run(ctx)
}
