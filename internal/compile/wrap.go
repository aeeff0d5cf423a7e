package compile

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"
)

// Variant is the initialization style of generated glue code.
type Variant string

const (
	// VariantFactory glue defines its own factory returning a promise
	// (or a thenable in old compiler versions).
	VariantFactory Variant = "factory"

	// VariantCallback glue initializes a global Module object and
	// signals completion through Module.onRuntimeInitialized.
	VariantCallback Variant = "callback"
)

// Format is the module system of the wrapped output.
type Format string

const (
	FormatCommonJS Format = "cjs"
	FormatESM      Format = "esm"
)

// ParseFormat accepts "", "cjs" and "esm". The empty string means cjs.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatCommonJS:
		return FormatCommonJS, nil
	case FormatESM:
		return FormatESM, nil
	default:
		return "", fmt.Errorf("unknown module format %q", s)
	}
}

const factoryMarker = "})();"

var exportLines = []*regexp.Regexp{
	regexp.MustCompile(`^\}?\s*(else\s+)?if\s*\(\s*typeof\s+(exports|module|define)\b`),
	regexp.MustCompile(`^module\.exports\b`),
	regexp.MustCompile(`^exports\b`),
	regexp.MustCompile(`^define\s*\(`),
	regexp.MustCompile(`^export\s+default\b`),
	regexp.MustCompile(`^\}?\s*else\s*\{?$`),
	regexp.MustCompile(`^[{}();\s]*$`),
	regexp.MustCompile(`^(//|/\*|\*)`),
}

// DetectVariant reports how the glue signals initialization. For factory
// glue it also returns the text with the trailing export statements removed;
// for callback glue the text is returned unchanged.
func DetectVariant(generated string) (Variant, string) {
	i := strings.LastIndex(generated, factoryMarker)
	if i < 0 {
		return VariantCallback, generated
	}
	end := i + len(factoryMarker)
	if !onlyExports(generated[end:]) {
		return VariantCallback, generated
	}
	return VariantFactory, generated[:end]
}

func onlyExports(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		matched := false
		for _, re := range exportLines {
			if re.MatchString(line) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

var factoryDecl = regexp.MustCompile(`(?m)^(?:var|let|const)\s+([A-Za-z_$][\w$]*)\s*=\s*\(`)

// FactoryName returns the name factory glue assigns its factory to.
// The compiler's default is Module.
func FactoryName(glue string) string {
	if m := factoryDecl.FindStringSubmatch(glue); m != nil {
		return m[1]
	}
	return "Module"
}

type WrapParams struct {
	Generated string // required
	Format    Format // default: FormatCommonJS
}

// Wrap rewrites generated glue into a factory function. Calling the factory
// with an optional bindings object returns a promise that resolves, once the
// binary is initialized, to the module object with
//   - an unprefixed alias for every exported "_name" and
//   - every binding copied onto it.
func Wrap(params *WrapParams) (string, error) {
	if strings.TrimSpace(params.Generated) == "" {
		return "", fmt.Errorf("compile.Wrap: %w", ErrEmptyGenerated)
	}
	format, err := ParseFormat(string(params.Format))
	if err != nil {
		return "", fmt.Errorf("compile.Wrap: %w", err)
	}

	variant, glue := DetectVariant(params.Generated)

	data := wrapData{Glue: glue, ESM: format == FormatESM}
	tmpl := callbackTemplate
	if variant == VariantFactory {
		tmpl = factoryTemplate
		data.FactoryName = FactoryName(glue)
	}

	var buf bytes.Buffer
	if err = tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("compile.Wrap: %w", err)
	}
	return buf.String(), nil
}

type wrapData struct {
	Glue        string
	FactoryName string
	ESM         bool
}

// finishFunc is shared by both templates. Module must only be mutated,
// never reassigned: the glue holds references to it.
const finishFunc = `
  function __emloadFinish(instance, bindings) {
    Object.keys(instance).forEach(function (key) {
      if (key.length > 1 && key.charAt(0) === "_") {
        instance[key.substring(1)] = instance[key];
      }
    });
    Object.keys(bindings || {}).forEach(function (key) {
      instance[key] = bindings[key];
    });
    return instance;
  }
`

var factoryTemplate = template.Must(template.New("factory").Parse(
	`{{if .ESM}}export default{{else}}module.exports ={{end}} function (bindings) {` + finishFunc + `
  function __emloadReady(result) {
    if (result instanceof Promise) {
      return result;
    }
    return new Promise(function (resolve) {
      if (result && typeof result.then === "function") {
        result.then(function (instance) {
          delete instance.then;
          resolve(instance);
        });
        return;
      }
      resolve(result);
    });
  }

{{.Glue}}

  return __emloadReady({{.FactoryName}}()).then(function (instance) {
    return __emloadFinish(instance, bindings);
  });
}{{if not .ESM}};{{end}}
`))

var callbackTemplate = template.Must(template.New("callback").Parse(
	`{{if .ESM}}export default{{else}}module.exports ={{end}} function (bindings) {` + finishFunc + `
  var __emloadInitialized;
  var __emloadReady = new Promise(function (resolve) {
    __emloadInitialized = resolve;
  });
  var Module = {
    onRuntimeInitialized: function () {
      __emloadInitialized(Module);
    }
  };

{{.Glue}}

  return __emloadReady.then(function (instance) {
    return __emloadFinish(instance, bindings);
  });
}{{if not .ESM}};{{end}}
`))
