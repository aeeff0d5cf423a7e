package compile

import (
	"path/filepath"
	"regexp"
	"strings"
)

type BuildArgsParams struct {
	Dialect      Dialect
	SourcePath   string
	Target       string // default: DefaultTarget
	WorkingDir   string
	FileBaseName string
	Config       *Config // optional
}

// BuildArgs returns the compiler arguments for a request.
// It is a pure function: equal params give equal arguments.
func BuildArgs(params *BuildArgsParams) []string {
	cfg := params.Config
	if cfg == nil {
		cfg = &Config{}
	}
	target := params.Target
	if target == "" {
		target = DefaultTarget
	}

	args := []string{params.SourcePath, "-s", "WASM=1", "-s", "MODULARIZE=1"}
	if params.Dialect == DialectCPP {
		args = append(args, "-std=c++11")
	}
	args = append(args, "-s", "ENVIRONMENT="+target)
	args = append(args, "-s", "EXPORTED_FUNCTIONS="+exportList(cfg.ExportedFuncs))
	if cfg.UseGL {
		args = append(args, "-lGL", "-lglfw", "-s", "USE_GLFW=3", "-s", "USE_WEBGL2=1")
	}
	for _, include := range cfg.Includes {
		if include == "" {
			continue
		}
		args = append(args, "-I", include)
	}
	for _, data := range cfg.Data {
		if data == "" {
			continue
		}
		args = append(args, "--preload-file", data)
	}
	for _, flag := range cfg.ExtraFlags {
		if flag == "" {
			continue
		}
		args = append(args, flag)
	}
	args = append(args, "-o", filepath.Join(params.WorkingDir, params.FileBaseName+".js"))

	return args
}

// ExportedFunctions returns the baseline exports followed by funcs,
// without duplicates and without empty names.
func ExportedFunctions(funcs []string) []string {
	seen := make(map[string]struct{}, len(BaselineExports)+len(funcs))
	result := make([]string, 0, len(BaselineExports)+len(funcs))
	for _, list := range [][]string{BaselineExports, funcs} {
		for _, name := range list {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			result = append(result, name)
		}
	}
	return result
}

func exportList(funcs []string) string {
	names := ExportedFunctions(funcs)
	quoted := make([]string, len(names))
	for i, name := range names {
		quoted[i] = "'" + name + "'"
	}
	return "[" + strings.Join(quoted, ",") + "]"
}

var (
	safeArg    = regexp.MustCompile(`^[A-Za-z0-9_@%+=:,./-]+$`)
	settingArg = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*=)(.*)$`)
)

// CommandString renders the executable and its arguments as a single
// shell command. Settings like EXPORTED_FUNCTIONS=[...] get only their
// value quoted so the result reads the way the compiler docs write it.
func CommandString(executable string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, quoteArg(executable))
	for _, arg := range args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

func quoteArg(arg string) string {
	if arg == "" {
		return `""`
	}
	if safeArg.MatchString(arg) {
		return arg
	}
	if m := settingArg.FindStringSubmatch(arg); m != nil {
		return m[1] + doubleQuote(m[2])
	}
	return doubleQuote(arg)
}

var doubleQuoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`, "`", "\\`")

func doubleQuote(s string) string {
	return `"` + doubleQuoteEscaper.Replace(s) + `"`
}
