package compile

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result of a compiler process that ran to completion.
type Outcome struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

type RunParams struct {
	Executable string   // required
	Args       []string // required
	Dir        string   // working directory, default: current

	// Mounts lists directories the compiler needs to see.
	// Runners that isolate the compiler use it; LocalRunner doesn't.
	Mounts []string

	Logger *slog.Logger // default: slog.Default()
}

// Runner runs one compiler process per call and never retries.
// A process that can't be started is a *SpawnError; a process that exits
// with a non-zero code is a successful Run with a non-zero Outcome.ExitCode.
type Runner interface {
	Run(ctx context.Context, params *RunParams) (*Outcome, error)
}

var _ Runner = (*LocalRunner)(nil)

// LocalRunner runs the compiler as a child process of the current one.
type LocalRunner struct{}

func (*LocalRunner) Run(ctx context.Context, params *RunParams) (*Outcome, error) {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, params.Executable, params.Args...)
	cmd.Dir = params.Dir

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &SpawnError{Executable: params.Executable, Err: err}
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, &SpawnError{Executable: params.Executable, Err: err}
	}

	if err = cmd.Start(); err != nil {
		return nil, &SpawnError{Executable: params.Executable, Err: err}
	}

	// Pipes must be drained before cmd.Wait closes them.
	var stdout, stderr bytes.Buffer
	g := new(errgroup.Group)
	g.Go(func() error {
		return copyLines(&stdout, stdoutPipe, logger, "stdout")
	})
	g.Go(func() error {
		return copyLines(&stderr, stderrPipe, logger, "stderr")
	})
	copyErr := g.Wait()

	outcome := &Outcome{ExitCode: -1}
	err = cmd.Wait()
	outcome.Stdout = stdout.String()
	outcome.Stderr = stderr.String()
	if err != nil {
		if exitErr := (*exec.ExitError)(nil); errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			outcome.ExitCode = exitErr.ExitCode()
			return outcome, nil
		}
		return nil, fmt.Errorf("compile.LocalRunner: %w", err)
	}
	if copyErr != nil {
		return nil, fmt.Errorf("compile.LocalRunner: %w", copyErr)
	}
	outcome.ExitCode = 0

	return outcome, nil
}

// copyLines copies r into buf and logs every line as soon as it is read.
func copyLines(buf *bytes.Buffer, r io.Reader, logger *slog.Logger, stream string) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			buf.Write(line)
			logLine(logger, stream, line)
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func logLine(logger *slog.Logger, stream string, line []byte) {
	text := string(bytes.TrimRight(line, "\r\n"))
	if text == "" {
		return
	}
	level := slog.LevelInfo
	if stream == "stderr" {
		level = slog.LevelWarn
	}
	logger.Log(context.Background(), level, "compiler output", "stream", stream, "line", text)
}

// LineWriter is an io.Writer that logs every complete line written to it
// and keeps a copy of everything. Runners that receive compiler output as a
// byte stream rather than a pipe use it.
type LineWriter struct {
	Logger *slog.Logger // required
	Stream string       // "stdout" or "stderr"

	buf     bytes.Buffer
	pending []byte
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	w.pending = append(w.pending, p...)
	for {
		i := bytes.IndexByte(w.pending, '\n')
		if i < 0 {
			break
		}
		logLine(w.Logger, w.Stream, w.pending[:i+1])
		w.pending = w.pending[i+1:]
	}
	return len(p), nil
}

// Flush logs a trailing line that didn't end with a newline.
func (w *LineWriter) Flush() {
	if len(w.pending) > 0 {
		logLine(w.Logger, w.Stream, w.pending)
		w.pending = nil
	}
}

func (w *LineWriter) String() string {
	return w.buf.String()
}
