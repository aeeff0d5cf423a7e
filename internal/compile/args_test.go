package compile

import (
	"reflect"
	"strings"
	"testing"

	"github.com/google/shlex"
)

func TestBuildArgs(t *testing.T) {
	tests := []struct {
		name   string
		params *BuildArgsParams
		want   []string
	}{
		{
			"builds C++ args with an include",
			&BuildArgsParams{
				Dialect:      DialectCPP,
				SourcePath:   "src/example.cpp",
				Target:       "web",
				WorkingDir:   "/tmp/emload-1",
				FileBaseName: "example",
				Config:       &Config{Includes: []string{"include"}},
			},
			[]string{
				"src/example.cpp",
				"-s", "WASM=1",
				"-s", "MODULARIZE=1",
				"-std=c++11",
				"-s", "ENVIRONMENT=web",
				"-s", "EXPORTED_FUNCTIONS=['_malloc','_free']",
				"-I", "include",
				"-o", "/tmp/emload-1/example.js",
			},
		},
		{
			"builds C args with every option",
			&BuildArgsParams{
				Dialect:      DialectC,
				SourcePath:   "main.c",
				Target:       "node",
				WorkingDir:   "/work",
				FileBaseName: "main",
				Config: &Config{
					Includes:      []string{"a", "b"},
					Data:          []string{"assets@/assets", "font.ttf"},
					UseGL:         true,
					ExtraFlags:    []string{"-O2", "-s", "ALLOW_MEMORY_GROWTH=1"},
					ExportedFuncs: []string{"_add", "_sub"},
				},
			},
			[]string{
				"main.c",
				"-s", "WASM=1",
				"-s", "MODULARIZE=1",
				"-s", "ENVIRONMENT=node",
				"-s", "EXPORTED_FUNCTIONS=['_malloc','_free','_add','_sub']",
				"-lGL", "-lglfw", "-s", "USE_GLFW=3", "-s", "USE_WEBGL2=1",
				"-I", "a",
				"-I", "b",
				"--preload-file", "assets@/assets",
				"--preload-file", "font.ttf",
				"-O2", "-s", "ALLOW_MEMORY_GROWTH=1",
				"-o", "/work/main.js",
			},
		},
		{
			"uses defaults for a nil config and an empty target",
			&BuildArgsParams{
				Dialect:      DialectC,
				SourcePath:   "main.c",
				WorkingDir:   "/work",
				FileBaseName: "main",
			},
			[]string{
				"main.c",
				"-s", "WASM=1",
				"-s", "MODULARIZE=1",
				"-s", "ENVIRONMENT=web",
				"-s", "EXPORTED_FUNCTIONS=['_malloc','_free']",
				"-o", "/work/main.js",
			},
		},
		{
			"skips empty list entries",
			&BuildArgsParams{
				Dialect:      DialectC,
				SourcePath:   "main.c",
				WorkingDir:   "/work",
				FileBaseName: "main",
				Config: &Config{
					Includes:   []string{""},
					Data:       []string{},
					ExtraFlags: []string{"", ""},
				},
			},
			[]string{
				"main.c",
				"-s", "WASM=1",
				"-s", "MODULARIZE=1",
				"-s", "ENVIRONMENT=web",
				"-s", "EXPORTED_FUNCTIONS=['_malloc','_free']",
				"-o", "/work/main.js",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BuildArgs(tt.params)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("is deterministic", func(t *testing.T) {
		params := &BuildArgsParams{
			Dialect:      DialectCPP,
			SourcePath:   "example.cpp",
			WorkingDir:   "/work",
			FileBaseName: "example",
			Config: &Config{
				Includes:      []string{"include"},
				Data:          []string{"data"},
				ExtraFlags:    []string{"-O3"},
				ExportedFuncs: []string{"_z", "_a", "_z"},
			},
		}
		first := BuildArgs(params)
		for i := 0; i < 10; i++ {
			if got := BuildArgs(params); !reflect.DeepEqual(got, first) {
				t.Fatalf("got %q, want %q", got, first)
			}
		}
	})

	t.Run("doesn't modify the config", func(t *testing.T) {
		cfg := &Config{ExportedFuncs: []string{"_free", "_add"}}
		_ = BuildArgs(&BuildArgsParams{Dialect: DialectC, SourcePath: "a.c", FileBaseName: "a", Config: cfg})
		if want := []string{"_free", "_add"}; !reflect.DeepEqual(cfg.ExportedFuncs, want) {
			t.Fatalf("got %q ExportedFuncs, want %q", cfg.ExportedFuncs, want)
		}
	})
}

func TestExportedFunctions(t *testing.T) {
	tests := []struct {
		name  string
		funcs []string
		want  []string
	}{
		{"returns baseline for nil", nil, []string{"_malloc", "_free"}},
		{"appends caller symbols", []string{"_add"}, []string{"_malloc", "_free", "_add"}},
		{"drops baseline duplicates", []string{"_free", "_add", "_malloc", "_free"}, []string{"_malloc", "_free", "_add"}},
		{"drops caller duplicates keeping order", []string{"_b", "_a", "_b"}, []string{"_malloc", "_free", "_b", "_a"}},
		{"drops empty names", []string{"", "_a"}, []string{"_malloc", "_free", "_a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExportedFunctions(tt.funcs)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
			for _, baseline := range BaselineExports {
				count := 0
				for _, name := range got {
					if name == baseline {
						count++
					}
				}
				if count != 1 {
					t.Errorf("got %d %s, want 1", count, baseline)
				}
			}
		})
	}
}

func TestCommandString(t *testing.T) {
	t.Run("renders the documented command line", func(t *testing.T) {
		args := BuildArgs(&BuildArgsParams{
			Dialect:      DialectCPP,
			SourcePath:   "example.cpp",
			Target:       "web",
			WorkingDir:   "/tmp/ws",
			FileBaseName: "example",
			Config:       &Config{Includes: []string{"include"}},
		})

		got := CommandString("em++", args)
		want := `em++ example.cpp -s WASM=1 -s MODULARIZE=1 -std=c++11 -s ENVIRONMENT=web -s EXPORTED_FUNCTIONS="['_malloc','_free']" -I include -o /tmp/ws/example.js`
		if got != want {
			t.Fatalf("got %s, want %s", got, want)
		}
	})

	t.Run("round-trips through a shell split", func(t *testing.T) {
		args := []string{
			"dir with space/main.c",
			"-s", "EXPORTED_FUNCTIONS=['_malloc','_free']",
			`-DGREETING="hi $USER"`,
			"-o", "/tmp/out.js",
		}

		command := CommandString("emcc", args)
		got, err := shlex.Split(command)
		if err != nil {
			t.Fatalf("got %q err", err)
		}
		if want := append([]string{"emcc"}, args...); !reflect.DeepEqual(got, want) {
			t.Fatalf("got %q, want %q", got, want)
		}
	})

	t.Run("leaves plain args unquoted", func(t *testing.T) {
		got := CommandString("emcc", []string{"a.c", "-O2", "--preload-file", "assets@/assets"})
		if strings.ContainsAny(got, `"'`) {
			t.Fatalf("got %s, want no quotes", got)
		}
	})
}

func TestCompilerFor(t *testing.T) {
	tests := []struct {
		dialect Dialect
		cc, cxx string
		want    string
	}{
		{DialectC, "", "", "emcc"},
		{DialectCPP, "", "", "em++"},
		{DialectC, "/opt/emsdk/emcc", "/opt/emsdk/em++", "/opt/emsdk/emcc"},
		{DialectCPP, "/opt/emsdk/emcc", "/opt/emsdk/em++", "/opt/emsdk/em++"},
	}
	for _, tt := range tests {
		if got := CompilerFor(tt.dialect, tt.cc, tt.cxx); got != tt.want {
			t.Errorf("got %s for %s, want %s", got, tt.dialect, tt.want)
		}
	}
}
