package compilefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/k11v/emload/internal/compile"
)

var _ compile.Emitter = (*Emitter)(nil)

// Emitter writes assets into a directory, creating it if needed.
type Emitter struct {
	Dir string // required
}

func NewEmitter(dir string) *Emitter {
	return &Emitter{Dir: dir}
}

// EmitFile implements compile.Emitter.
func (e *Emitter) EmitFile(_ context.Context, name string, data []byte) error {
	if name != filepath.Base(name) {
		return fmt.Errorf("compilefs.Emitter: name %q isn't a base name", name)
	}
	if err := os.MkdirAll(e.Dir, 0o777); err != nil {
		return fmt.Errorf("compilefs.Emitter: %w", err)
	}
	if err := os.WriteFile(filepath.Join(e.Dir, name), data, 0o666); err != nil {
		return fmt.Errorf("compilefs.Emitter: %w", err)
	}
	return nil
}
