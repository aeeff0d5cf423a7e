package amqputil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/k11v/emload/internal/options"
)

// CompileMessage asks a worker to compile one source file.
type CompileMessage struct {
	ID         uuid.UUID        `json:"id"`
	SourcePath string           `json:"source_path"`
	Target     string           `json:"target,omitempty"`
	Format     string           `json:"format,omitempty"`
	Options    *options.Options `json:"options,omitempty"`
}

func EncodeCompileMessage(m *CompileMessage) ([]byte, error) {
	if m.ID == uuid.Nil {
		return nil, errors.New("missing id")
	}
	if m.SourcePath == "" {
		return nil, errors.New("missing source_path")
	}
	return json.Marshal(m)
}

// DecodeCompileMessage decodes a single JSON object. Unknown fields are
// rejected.
func DecodeCompileMessage(body []byte) (*CompileMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	var m CompileMessage
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid body: %w", err)
	}
	if dec.More() {
		return nil, errors.New("invalid body: multiple top-level values")
	}

	if m.ID == uuid.Nil {
		return nil, fmt.Errorf("missing %s body field", "id")
	}
	if m.SourcePath == "" {
		return nil, fmt.Errorf("missing %s body field", "source_path")
	}
	return &m, nil
}
