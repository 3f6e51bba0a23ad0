package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/native-interop/errors"
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema *jsonschema.Schema

func init() {
	var doc any
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		panic(fmt.Sprintf("failed to decode catalog schema: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("catalog.json", doc); err != nil {
		panic(fmt.Sprintf("failed to add catalog schema: %v", err))
	}
	var err error
	compiledSchema, err = c.Compile("catalog.json")
	if err != nil {
		panic(fmt.Sprintf("failed to compile catalog schema: %v", err))
	}
}

// Schema returns the embedded JSON Schema document.
func Schema() []byte {
	return schemaJSON
}

// ValidateSchema checks raw catalog YAML against the embedded schema.
func ValidateSchema(data []byte) error {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return errors.Wrap(errors.PhaseCatalog, errors.KindInvalidData, err, "parse catalog YAML")
	}
	if err := compiledSchema.Validate(toJSON(raw)); err != nil {
		return errors.Wrap(errors.PhaseCatalog, errors.KindInvalidData, err, "catalog schema validation")
	}
	return nil
}

// toJSON converts yaml.v3 values into the shapes encoding/json produces.
// Integer map keys (union tag arms) become strings, and a bare boolean
// fails_on is read as its convention name.
func toJSON(v any) any {
	switch v := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = jsonField(k, val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			key := keyString(k)
			out[key] = jsonField(key, val)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = toJSON(val)
		}
		return out
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case uint64:
		return float64(v)
	}
	return v
}

func jsonField(key string, val any) any {
	if b, ok := val.(bool); ok && key == "fails_on" {
		return strconv.FormatBool(b)
	}
	return toJSON(val)
}

func keyString(k any) string {
	switch k := k.(type) {
	case string:
		return k
	case int:
		return strconv.Itoa(k)
	case int64:
		return strconv.FormatInt(k, 10)
	case uint64:
		return strconv.FormatUint(k, 10)
	}
	return fmt.Sprint(k)
}
