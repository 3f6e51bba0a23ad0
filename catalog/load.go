package catalog

import (
	_ "embed"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/native-interop/errors"
)

//go:embed sdl.yaml
var sdlYAML []byte

type LoadOptions struct {
	// SkipValidation skips both schema and semantic validation.
	SkipValidation bool
}

// Load reads and parses a catalog file.
func Load(path string, opts LoadOptions) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read catalog "+path, err)
	}
	return Parse(data, opts)
}

// Parse validates data against the schema, unmarshals it and runs the
// semantic checks.
func Parse(data []byte, opts LoadOptions) (*Catalog, error) {
	if !opts.SkipValidation {
		if err := ValidateSchema(data); err != nil {
			return nil, err
		}
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.PhaseCatalog, errors.KindInvalidData, err, "parse catalog")
	}
	if !opts.SkipValidation {
		if res := Validate(&c); !res.IsValid() {
			return nil, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
				Cause(res).
				Detail("catalog %q failed semantic validation", c.Name).
				Build()
		}
	}
	return &c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
)

// Default returns the embedded SDL catalog. Callers must not modify it.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(sdlYAML, LoadOptions{})
		if err != nil {
			panic("embedded catalog: " + err.Error())
		}
		defaultCat = c
	})
	return defaultCat
}

// DefaultYAML returns the embedded SDL catalog source.
func DefaultYAML() []byte {
	return sdlYAML
}
