package compile

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedSource = errors.New("unsupported source")
	ErrEmptyGenerated    = errors.New("empty generated code")
	ErrMissingData       = errors.New("missing data file")
)

// WorkspaceError is returned when a working directory can't be
// allocated or removed.
type WorkspaceError struct {
	Op  string // "acquire" or "release"
	Dir string
	Err error
}

func (e *WorkspaceError) Error() string {
	if e.Dir == "" {
		return fmt.Sprintf("workspace %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("workspace %s %s: %v", e.Op, e.Dir, e.Err)
}

func (e *WorkspaceError) Unwrap() error { return e.Err }

// SpawnError is returned when the compiler process can't be started.
type SpawnError struct {
	Executable string
	Err        error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Executable, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// CompilationError is returned when the compiler exits with a non-zero code.
// Command can be pasted into a shell to reproduce the failure.
type CompilationError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("%s failed to run, with exit code %d", e.Command, e.ExitCode)
}

// ArtifactReadError is returned when a file the compiler should have
// produced can't be read.
type ArtifactReadError struct {
	Path string
	Err  error
}

func (e *ArtifactReadError) Error() string {
	return fmt.Sprintf("read artifact %s: %v", e.Path, e.Err)
}

func (e *ArtifactReadError) Unwrap() error { return e.Err }
