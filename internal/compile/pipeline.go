package compile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// acquireWorkspace is replaced in tests.
var acquireWorkspace = AcquireWorkspace

// Pipeline turns one source file into a wrapped module and its assets.
// It holds no per-request state and can serve concurrent requests.
type Pipeline struct {
	Runner  Runner       // required
	Emitter Emitter      // required
	Logger  *slog.Logger // default: slog.Default()
	CC      string       // default: DefaultCC
	CXX     string       // default: DefaultCXX
}

type TransformParams struct {
	SourcePath string  // required
	Target     string  // default: DefaultTarget
	Config     *Config // optional
	Format     Format  // default: FormatCommonJS
}

type TransformResult struct {
	Module  string
	Dialect Dialect
	Command []string // nil if the source didn't need compiling
	Assets  []string // names passed to Emitter, in order
}

// Transform compiles params.SourcePath if needed, wraps the generated glue and
// emits the .wasm and .data assets. Nothing is emitted if any step fails.
// The workspace is released before Transform returns.
func (p *Pipeline) Transform(ctx context.Context, params *TransformParams) (result *TransformResult, err error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := params.Config
	if cfg == nil {
		cfg = &Config{}
	}

	dialect, err := DialectOf(params.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("compile.Pipeline: %w", err)
	}
	base := FileBaseName(params.SourcePath)
	logger = logger.With("source", params.SourcePath, "dialect", dialect)

	ws, err := acquireWorkspace(dialect.RequiresCompilation(), params.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("compile.Pipeline: %w", err)
	}
	// Error paths release here. The success path releases before emitting.
	defer func() {
		if err == nil {
			return
		}
		if releaseErr := ws.Release(); releaseErr != nil {
			logger.Error("didn't release workspace", "dir", ws.Dir, "error", releaseErr)
		}
	}()

	result = &TransformResult{Dialect: dialect}

	if dialect.RequiresCompilation() {
		executable := CompilerFor(dialect, p.CC, p.CXX)
		args := BuildArgs(&BuildArgsParams{
			Dialect:      dialect,
			SourcePath:   params.SourcePath,
			Target:       params.Target,
			WorkingDir:   ws.Dir,
			FileBaseName: base,
			Config:       cfg,
		})
		result.Command = append([]string{executable}, args...)

		if err = p.compile(ctx, logger, ws, params.SourcePath, cfg, executable, args); err != nil {
			return nil, fmt.Errorf("compile.Pipeline: %w", err)
		}
	} else {
		logger.Debug("skipped compilation")
	}

	artifacts, err := CollectArtifacts(&CollectParams{
		Dir:          ws.Dir,
		FileBaseName: base,
		RequireData:  dialect.RequiresCompilation() && len(cfg.Data) > 0,
	})
	if err != nil {
		return nil, fmt.Errorf("compile.Pipeline: %w", err)
	}

	module, err := Wrap(&WrapParams{Generated: artifacts.Generated, Format: params.Format})
	if err != nil {
		return nil, fmt.Errorf("compile.Pipeline: %w", err)
	}

	// Artifacts are in memory now. A workspace that can't be removed fails
	// the request before anything is emitted.
	if err = ws.Release(); err != nil {
		logger.Error("didn't release workspace", "dir", ws.Dir, "error", err)
		return nil, fmt.Errorf("compile.Pipeline: %w", err)
	}

	assets := []EmittedFile{
		{Name: base + ".wasm", Data: artifacts.Payload},
		{Name: base + ".data", Data: artifacts.Data},
	}
	for _, a := range assets {
		if err = p.Emitter.EmitFile(ctx, a.Name, a.Data); err != nil {
			return nil, fmt.Errorf("compile.Pipeline: emit %s: %w", a.Name, err)
		}
		result.Assets = append(result.Assets, a.Name)
		logger.Debug("emitted asset", "name", a.Name, "size", len(a.Data))
	}

	result.Module = module
	return result, nil
}

func (p *Pipeline) compile(ctx context.Context, logger *slog.Logger, ws *Workspace, sourcePath string, cfg *Config, executable string, args []string) error {
	command := CommandString(executable, args)
	logger.Info("compiling", "command", command)

	outcome, err := p.Runner.Run(ctx, &RunParams{
		Executable: executable,
		Args:       args,
		Mounts:     mounts(ws.Dir, sourcePath, cfg),
		Logger:     logger,
	})
	if err != nil {
		if spawnErr := (*SpawnError)(nil); errors.As(err, &spawnErr) {
			logger.Error("didn't start compiler", "executable", executable, "error", spawnErr.Err)
		}
		return err
	}
	if outcome.ExitCode != 0 {
		return &CompilationError{Command: command, ExitCode: outcome.ExitCode, Stderr: outcome.Stderr}
	}

	logger.Info("compiled")
	return nil
}
