package main

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/k11v/emload/internal/applog"
	"github.com/k11v/emload/internal/compile"
)

const (
	runnerLocal  = "local"
	runnerDocker = "docker"

	assetsFS = "fs"
	assetsS3 = "s3"
)

// ExitError carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

type invocation struct {
	SourcePath  string
	OptionsPath string
	Target      string
	Format      compile.Format
	OutPath     string // empty means stdout
	Assets      string
	AssetsDir   string
	Runner      string
	ExtraFlags  string
	Enqueue     bool
	LogLevel    string
	LogFormat   string
}

// parseArgs parses command-line arguments on top of cfg. It returns the
// invocation, whether the program should exit cleanly, or an ExitError.
func parseArgs(args []string, output io.Writer, cfg *config) (*invocation, bool, error) {
	flagSet := flag.NewFlagSet("emload", flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, `
emload compiles a C or C++ source file to WebAssembly and wraps the
generated glue into a promise-based module factory.

Usage:
  emload [options] SOURCE

Arguments:
  SOURCE
    Path to a .c, .cpp, .cc, .cxx, .c++ or pre-generated .js file.

Options:
`)
		flagSet.PrintDefaults()
	}

	optionsFlag := flagSet.String("options", "", "Path to an HCL options file.")
	targetFlag := flagSet.String("target", cfg.Target, "Compiler ENVIRONMENT setting, e.g. 'web' or 'node'.")
	formatFlag := flagSet.String("format", string(compile.FormatCommonJS), "Module format. Options: 'cjs' or 'esm'.")
	outFlag := flagSet.String("out", "", "Path to write the wrapped module to. Defaults to standard output.")
	assetsFlag := flagSet.String("assets", assetsFS, "Asset destination. Options: 'fs' or 's3'.")
	assetsDirFlag := flagSet.String("assets-dir", ".", "Directory for assets when -assets is 'fs'.")
	runnerFlag := flagSet.String("runner", cfg.Runner, "Where to run the compiler. Options: 'local' or 'docker'.")
	extraFlagsFlag := flagSet.String("extra-flags", "", "Extra compiler flags, split like a shell would.")
	enqueueFlag := flagSet.Bool("enqueue", false, "Publish a compile job instead of compiling.")
	logLevelFlag := flagSet.String("log-level", cfg.LogLevel, "Logging level. Options: 'debug', 'info', 'warn', 'error'.")
	logFormatFlag := flagSet.String("log-format", cfg.LogFormat, "Log output format. Options: 'text' or 'json'.")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	if flagSet.NArg() == 0 {
		flagSet.Usage()
		return nil, false, &ExitError{Code: 2, Message: "missing SOURCE argument"}
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: "only one SOURCE argument is allowed"}
	}

	format, err := compile.ParseFormat(*formatFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	switch *assetsFlag {
	case assetsFS, assetsS3:
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid assets: must be 'fs' or 's3'"}
	}

	switch *runnerFlag {
	case runnerLocal, runnerDocker:
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid runner: must be 'local' or 'docker'"}
	}

	if _, err = applog.ParseLevel(*logLevelFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if err = applog.ValidateFormat(*logFormatFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	inv := &invocation{
		SourcePath:  flagSet.Arg(0),
		OptionsPath: *optionsFlag,
		Target:      *targetFlag,
		Format:      format,
		OutPath:     *outFlag,
		Assets:      *assetsFlag,
		AssetsDir:   *assetsDirFlag,
		Runner:      *runnerFlag,
		ExtraFlags:  *extraFlagsFlag,
		Enqueue:     *enqueueFlag,
		LogLevel:    *logLevelFlag,
		LogFormat:   *logFormatFlag,
	}
	return inv, false, nil
}
