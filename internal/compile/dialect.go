package compile

import (
	"fmt"
	"path/filepath"
	"strings"
)

type Dialect string

const (
	DialectC            Dialect = "c"
	DialectCPP          Dialect = "cpp"
	DialectPreGenerated Dialect = "pre-generated"
)

// RequiresCompilation reports whether sources of the dialect go through
// the compiler.
func (d Dialect) RequiresCompilation() bool {
	return d == DialectC || d == DialectCPP
}

// DialectOf derives the dialect from the source file extension.
func DialectOf(sourcePath string) (Dialect, error) {
	switch strings.ToLower(filepath.Ext(sourcePath)) {
	case ".c":
		return DialectC, nil
	case ".cpp", ".cc", ".cxx", ".c++":
		return DialectCPP, nil
	case ".js":
		return DialectPreGenerated, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSource, sourcePath)
	}
}

// FileBaseName returns the source file name without its extension.
// Artifacts are named after it.
func FileBaseName(sourcePath string) string {
	base := filepath.Base(sourcePath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
