package compile

import (
	"os"
	"path/filepath"
	"sync"
)

// Workspace is a directory the compiler writes its output to.
type Workspace struct {
	Dir string

	once    sync.Once
	release func() error
	err     error
}

// Release removes the directory if it was created by AcquireWorkspace.
// Only the first call does anything; later calls return its result.
func (w *Workspace) Release() error {
	w.once.Do(func() {
		if w.release != nil {
			w.err = w.release()
		}
	})
	return w.err
}

// AcquireWorkspace returns a fresh temporary directory when the source has to
// be compiled, and the source's own directory otherwise.
// The source's directory is never removed on release.
func AcquireWorkspace(requiresCompilation bool, sourcePath string) (*Workspace, error) {
	if !requiresCompilation {
		return &Workspace{Dir: filepath.Dir(sourcePath)}, nil
	}

	dir, err := os.MkdirTemp("", "emload-")
	if err != nil {
		return nil, &WorkspaceError{Op: "acquire", Err: err}
	}

	w := &Workspace{Dir: dir}
	w.release = func() error {
		if err := os.RemoveAll(dir); err != nil {
			return &WorkspaceError{Op: "release", Dir: dir, Err: err}
		}
		return nil
	}
	return w, nil
}
