package compile

import (
	"context"
	"sync"
)

// Emitter publishes binary assets next to the wrapped module.
// How and where they are stored is up to the implementation.
type Emitter interface {
	EmitFile(ctx context.Context, name string, data []byte) error
}

// EmittedFile is a file recorded by MemoryEmitter.
type EmittedFile struct {
	Name string
	Data []byte
}

var _ Emitter = (*MemoryEmitter)(nil)

// MemoryEmitter keeps emitted files in memory.
type MemoryEmitter struct {
	mu    sync.Mutex
	files []EmittedFile
}

func (e *MemoryEmitter) EmitFile(_ context.Context, name string, data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.files = append(e.files, EmittedFile{Name: name, Data: append([]byte{}, data...)})
	return nil
}

// Files returns the emitted files in emission order.
func (e *MemoryEmitter) Files() []EmittedFile {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]EmittedFile(nil), e.files...)
}
