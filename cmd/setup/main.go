package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"

	"github.com/k11v/emload/internal/applog"
	"github.com/k11v/emload/internal/apppg"
	"github.com/k11v/emload/internal/apps3"
)

type config struct {
	S3ConnectionString       string `env:"S3_CONNECTION_STRING"`
	S3Bucket                 string `env:"S3_BUCKET"`
	PostgresConnectionString string `env:"POSTGRES_CONNECTION_STRING"`
	LogLevel                 string `env:"LOG_LEVEL"`
	LogFormat                string `env:"LOG_FORMAT"`
}

func parseConfig(environ []string) (*config, error) {
	cfg := config{
		S3ConnectionString:       apps3.DefaultConnectionString,
		S3Bucket:                 apps3.DefaultBucket,
		PostgresConnectionString: apppg.DefaultConnectionString,
		LogLevel:                 "info",
		LogFormat:                "text",
	}

	err := env.ParseWithOptions(&cfg, env.Options{
		Environment: env.ToMap(environ),
		Prefix:      "EMLOAD_",
	})
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func main() {
	if err := run(context.Background(), os.Environ()); err != nil {
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

	if err = apppg.Setup(cfg.PostgresConnectionString); err != nil {
		return err
	}
	logger.Info("migrated postgres")

	client, err := apps3.NewClient(cfg.S3ConnectionString)
	if err != nil {
		return err
	}
	if err = apps3.Setup(ctx, client, cfg.S3Bucket); err != nil {
		return err
	}
	logger.Info("created bucket", "bucket", cfg.S3Bucket)

	return nil
}
