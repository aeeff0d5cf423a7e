package options

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/k11v/emload/internal/compile"
)

func TestParse(t *testing.T) {
	t.Run("decodes every attribute", func(t *testing.T) {
		src := []byte(`
includes       = ["include", "/opt/include"]
data           = ["assets@/assets"]
use_gl         = true
extra_flags    = ["-O2", "-s", "ALLOW_MEMORY_GROWTH=1"]
exported_funcs = ["_add"]
`)

		got, err := Parse(src, "emload.hcl")
		if err != nil {
			t.Fatalf("got %q err", err)
		}

		want := &Options{
			Includes:      []string{"include", "/opt/include"},
			Data:          []string{"assets@/assets"},
			UseGL:         true,
			ExtraFlags:    []string{"-O2", "-s", "ALLOW_MEMORY_GROWTH=1"},
			ExportedFuncs: []string{"_add"},
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})

	t.Run("accepts an empty file", func(t *testing.T) {
		got, err := Parse(nil, "emload.hcl")
		if err != nil {
			t.Fatalf("got %q err", err)
		}
		if !reflect.DeepEqual(got.Config(), &compile.Config{}) {
			t.Fatalf("got %+v, want zero config", got.Config())
		}
	})

	t.Run("rejects unknown attributes", func(t *testing.T) {
		_, err := Parse([]byte(`optimize = true`), "emload.hcl")
		if err == nil {
			t.Fatal("got nil err")
		}
	})

	t.Run("rejects invalid syntax", func(t *testing.T) {
		_, err := Parse([]byte(`includes = [`), "emload.hcl")
		if err == nil {
			t.Fatal("got nil err")
		}
	})
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emload.hcl")
	err := os.WriteFile(path, []byte(`
includes = ["include", "/opt/include"]
data     = ["assets@/assets", "font.ttf", "/usr/share/fonts/mono.ttf"]
`), 0o666)
	if err != nil {
		t.Fatalf("got %q err", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("got %q err", err)
	}

	wantIncludes := []string{filepath.Join(dir, "include"), "/opt/include"}
	if !reflect.DeepEqual(got.Includes, wantIncludes) {
		t.Errorf("got %q Includes, want %q", got.Includes, wantIncludes)
	}
	wantData := []string{
		filepath.Join(dir, "assets") + "@/assets",
		filepath.Join(dir, "font.ttf") + "@font.ttf",
		"/usr/share/fonts/mono.ttf",
	}
	if !reflect.DeepEqual(got.Data, wantData) {
		t.Errorf("got %q Data, want %q", got.Data, wantData)
	}
}

func TestLoadPreloadPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "emload.hcl")
	if err := os.WriteFile(path, []byte(`data = ["font.ttf"]`), 0o666); err != nil {
		t.Fatalf("got %q err", err)
	}

	o, err := Load(path)
	if err != nil {
		t.Fatalf("got %q err", err)
	}
	args := compile.BuildArgs(&compile.BuildArgsParams{
		Dialect:      compile.DialectC,
		SourcePath:   filepath.Join(dir, "example.c"),
		WorkingDir:   t.TempDir(),
		FileBaseName: "example",
		Config:       o.Config(),
	})

	want := filepath.Join(dir, "font.ttf") + "@font.ttf"
	for i, arg := range args {
		if arg == "--preload-file" && i+1 < len(args) {
			if got := args[i+1]; got != want {
				t.Fatalf("got %q preload entry, want %q", got, want)
			}
			return
		}
	}
	t.Fatalf("got %q args, want a --preload-file entry", args)
}

func TestOptionsConfig(t *testing.T) {
	o := &Options{Includes: []string{"a"}}
	cfg := o.Config()
	cfg.Includes[0] = "b"
	if o.Includes[0] != "a" {
		t.Fatalf("got %q Includes, want config to own its slices", o.Includes)
	}

	var nilOptions *Options
	if got := nilOptions.Config(); !reflect.DeepEqual(got, &compile.Config{}) {
		t.Fatalf("got %+v, want zero config", got)
	}
}
