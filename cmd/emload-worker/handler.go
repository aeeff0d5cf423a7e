package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/k11v/emload/internal/amqputil"
	"github.com/k11v/emload/internal/compile"
	"github.com/k11v/emload/internal/journal"
)

type journalDatabase interface {
	CreateJob(ctx context.Context, params *journal.CreateJobParams) (*journal.Job, error)
	FinishJob(ctx context.Context, params *journal.FinishJobParams) (*journal.Job, error)
	GetJobByIdempotencyKey(ctx context.Context, params *journal.GetJobByIdempotencyKeyParams) (*journal.Job, error)
}

// Handler runs one compile job. The wrapped module and the assets of a job
// are emitted under a prefix named after the job's message ID.
type Handler struct {
	Journal    journalDatabase                     // required
	Runner     compile.Runner                      // required
	NewEmitter func(prefix string) compile.Emitter // required
	CC         string
	CXX        string
	Logger     *slog.Logger // default: slog.Default()
}

// Handle returns nil once the job is journaled as finished or was a
// duplicate. A failed compilation is a finished job, not a Handle error.
// A redelivered message whose job is still running was interrupted before
// it finished, so the job is compiled again.
func (h *Handler) Handle(ctx context.Context, body []byte, redelivered bool) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	m, err := amqputil.DecodeCompileMessage(body)
	if err != nil {
		return err
	}
	format, err := compile.ParseFormat(m.Format)
	if err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	dialect, err := compile.DialectOf(m.SourcePath)
	if err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	target := m.Target
	if target == "" {
		target = compile.DefaultTarget
	}
	logger = logger.With("job_id", m.ID, "source", m.SourcePath)

	job, err := h.Journal.CreateJob(ctx, &journal.CreateJobParams{
		IdempotencyKey: m.ID,
		SourcePath:     m.SourcePath,
		Target:         target,
		Dialect:        string(dialect),
	})
	if errors.Is(err, journal.ErrIdempotencyKeyAlreadyUsed) {
		if !redelivered {
			logger.Info("skipped duplicate job")
			return nil
		}
		job, err = h.Journal.GetJobByIdempotencyKey(ctx, &journal.GetJobByIdempotencyKeyParams{IdempotencyKey: m.ID})
		if err != nil {
			return err
		}
		if job.Status != journal.StatusRunning {
			logger.Info("skipped duplicate job", "status", job.Status)
			return nil
		}
		logger.Warn("resuming interrupted job")
	} else if err != nil {
		return err
	}

	finishParams := h.compile(ctx, logger, job.ID, m, target, format)

	// The job must be finished even if ctx was canceled mid-compile.
	_, err = h.Journal.FinishJob(context.WithoutCancel(ctx), finishParams)
	if errors.Is(err, journal.ErrNotFound) {
		logger.Info("job was finished by another delivery")
		return nil
	} else if err != nil {
		return err
	}
	logger.Info("finished job", "status", finishParams.Status)
	return nil
}

func (h *Handler) compile(ctx context.Context, logger *slog.Logger, jobID uuid.UUID, m *amqputil.CompileMessage, target string, format compile.Format) *journal.FinishJobParams {
	emitter := h.NewEmitter(m.ID.String())
	pipeline := &compile.Pipeline{
		Runner:  h.Runner,
		Emitter: emitter,
		Logger:  logger,
		CC:      h.CC,
		CXX:     h.CXX,
	}

	result, err := pipeline.Transform(ctx, &compile.TransformParams{
		SourcePath: m.SourcePath,
		Target:     target,
		Config:     m.Options.Config(),
		Format:     format,
	})
	if err == nil {
		name := compile.FileBaseName(m.SourcePath) + ".js"
		err = emitter.EmitFile(ctx, name, []byte(result.Module))
	}
	if err != nil {
		logger.Error("didn't compile", "error", err)
		return failedJob(jobID, err)
	}

	params := &journal.FinishJobParams{ID: jobID, Status: journal.StatusSucceeded}
	if len(result.Command) > 0 {
		exitCode := 0
		params.Command = compile.CommandString(result.Command[0], result.Command[1:])
		params.ExitCode = &exitCode
	}
	return params
}

func failedJob(jobID uuid.UUID, err error) *journal.FinishJobParams {
	params := &journal.FinishJobParams{ID: jobID, Status: journal.StatusFailed, Error: err.Error()}
	if compilationErr := (*compile.CompilationError)(nil); errors.As(err, &compilationErr) {
		exitCode := compilationErr.ExitCode
		params.Command = compilationErr.Command
		params.ExitCode = &exitCode
	}
	return params
}
