// Package options reads compiler options from HCL files and JSON messages.
package options

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/k11v/emload/internal/compile"
)

// Options is the serialized form of compile.Config.
// Every attribute is optional.
type Options struct {
	Includes      []string `hcl:"includes,optional" json:"includes,omitempty"`
	Data          []string `hcl:"data,optional" json:"data,omitempty"`
	UseGL         bool     `hcl:"use_gl,optional" json:"use_gl,omitempty"`
	ExtraFlags    []string `hcl:"extra_flags,optional" json:"extra_flags,omitempty"`
	ExportedFuncs []string `hcl:"exported_funcs,optional" json:"exported_funcs,omitempty"`
}

// Config returns a compile.Config with copies of the option lists.
func (o *Options) Config() *compile.Config {
	if o == nil {
		return &compile.Config{}
	}
	return &compile.Config{
		Includes:      append([]string(nil), o.Includes...),
		Data:          append([]string(nil), o.Data...),
		UseGL:         o.UseGL,
		ExtraFlags:    append([]string(nil), o.ExtraFlags...),
		ExportedFuncs: append([]string(nil), o.ExportedFuncs...),
	}
}

// Parse decodes HCL options. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Options, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse options file %s: %w", filename, diags)
	}

	var o Options
	diags = gohcl.DecodeBody(file.Body, nil, &o)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode options file %s: %w", filename, diags)
	}
	return &o, nil
}

// Load reads an options file. Relative include and preload paths are
// resolved against the file's directory, so an options file can sit next to
// the sources it describes.
func Load(path string) (*Options, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read options file: %w", err)
	}

	o, err := Parse(src, path)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i, include := range o.Includes {
		o.Includes[i] = resolve(dir, include)
	}
	// A preload entry without @ is mounted at its path as written, so a
	// resolved entry keeps that path as its destination.
	for i, data := range o.Data {
		src, dst, found := strings.Cut(data, "@")
		resolved := resolve(dir, src)
		switch {
		case found:
			o.Data[i] = resolved + "@" + dst
		case resolved != src:
			o.Data[i] = resolved + "@" + src
		}
	}
	return o, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
