package compile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// ArtifactSet holds the files produced for one source.
type ArtifactSet struct {
	Generated string // {base}.js
	Payload   []byte // {base}.wasm
	Data      []byte // {base}.data, empty if the file doesn't exist
}

type CollectParams struct {
	Dir          string // required
	FileBaseName string // required

	// RequireData makes a missing .data file an error.
	// It should be set when preload entries were passed to the compiler.
	RequireData bool
}

// CollectArtifacts reads the generated glue, the binary payload
// and, if present, the preload data from params.Dir.
func CollectArtifacts(params *CollectParams) (*ArtifactSet, error) {
	jsPath := filepath.Join(params.Dir, params.FileBaseName+".js")
	wasmPath := filepath.Join(params.Dir, params.FileBaseName+".wasm")
	dataPath := filepath.Join(params.Dir, params.FileBaseName+".data")

	generated, err := os.ReadFile(jsPath)
	if err != nil {
		return nil, &ArtifactReadError{Path: jsPath, Err: err}
	}

	payload, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, &ArtifactReadError{Path: wasmPath, Err: err}
	}

	data, err := os.ReadFile(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		if params.RequireData {
			return nil, &ArtifactReadError{Path: dataPath, Err: ErrMissingData}
		}
		data = []byte{}
	} else if err != nil {
		return nil, &ArtifactReadError{Path: dataPath, Err: err}
	}

	return &ArtifactSet{
		Generated: string(generated),
		Payload:   payload,
		Data:      data,
	}, nil
}
