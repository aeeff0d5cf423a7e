package main

import (
	"github.com/caarlos0/env/v11"

	"github.com/k11v/emload/internal/amqputil"
	"github.com/k11v/emload/internal/apps3"
	"github.com/k11v/emload/internal/compile"
	"github.com/k11v/emload/internal/compile/compiledocker"
)

// config holds the environment configuration. Flags override it.
type config struct {
	CC          string     `env:"CC"`
	CXX         string     `env:"CXX"`
	Target      string     `env:"TARGET"`
	Runner      string     `env:"RUNNER"`
	DockerImage string     `env:"DOCKER_IMAGE"`
	S3          s3Config   `envPrefix:"S3_"`
	AMQP        amqpConfig `envPrefix:"AMQP_"`
	Queue       string     `env:"QUEUE"`
	LogLevel    string     `env:"LOG_LEVEL"`
	LogFormat   string     `env:"LOG_FORMAT"`
}

type s3Config struct {
	ConnectionString string `env:"CONNECTION_STRING"`
	Bucket           string `env:"BUCKET"`
}

type amqpConfig struct {
	ConnectionString string `env:"CONNECTION_STRING"`
}

// parseConfig parses the configuration from EMLOAD_ environment variables.
func parseConfig(environ []string) (*config, error) {
	cfg := config{
		CC:          compile.DefaultCC,
		CXX:         compile.DefaultCXX,
		Target:      compile.DefaultTarget,
		Runner:      runnerLocal,
		DockerImage: compiledocker.DefaultImage,
		S3: s3Config{
			ConnectionString: apps3.DefaultConnectionString,
			Bucket:           apps3.DefaultBucket,
		},
		AMQP:      amqpConfig{ConnectionString: amqputil.DefaultConnectionString},
		Queue:     amqputil.DefaultQueue,
		LogLevel:  "info",
		LogFormat: "text",
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
