package compile

// Config holds the per-invocation compiler options.
// The zero value compiles without includes, preload data, GL support,
// extra flags or extra exports.
type Config struct {
	Includes      []string // -I paths, in order
	Data          []string // --preload-file entries, in order
	UseGL         bool
	ExtraFlags    []string // appended verbatim after all other flags
	ExportedFuncs []string // exported in addition to _malloc and _free
}

// BaselineExports are always exported so the host can manage module memory.
var BaselineExports = []string{"_malloc", "_free"}

// DefaultTarget is the ENVIRONMENT the compiler builds for
// when the request doesn't name one.
const DefaultTarget = "web"

const (
	DefaultCC  = "emcc"
	DefaultCXX = "em++"
)

// CompilerFor returns the compiler executable for the dialect.
// Empty cc or cxx fall back to emcc and em++.
func CompilerFor(dialect Dialect, cc, cxx string) string {
	if dialect == DialectCPP {
		if cxx == "" {
			return DefaultCXX
		}
		return cxx
	}
	if cc == "" {
		return DefaultCC
	}
	return cc
}
