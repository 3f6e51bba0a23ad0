package catalog

import (
	"fmt"
	"strings"

	"github.com/wippyai/native-interop/layout"
)

// ValidationError is a single semantic problem in a catalog.
type ValidationError struct {
	Path    string // e.g. "functions[3].params[1]"
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationResult holds every semantic problem found.
type ValidationResult struct {
	Errors []ValidationError
}

func (r *ValidationResult) addError(path, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) IsValid() bool {
	return len(r.Errors) == 0
}

func (r *ValidationResult) Error() string {
	if r.IsValid() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// Validate checks what the schema cannot: unique names, resolvable struct
// references, sensible failure conventions and layouts that compile.
func Validate(c *Catalog) *ValidationResult {
	r := &ValidationResult{}

	seen := make(map[string]bool)
	for i, f := range c.Functions {
		path := fmt.Sprintf("functions[%d]", i)
		if seen[f.Name] {
			r.addError(path+".name", "duplicate function %q", f.Name)
		}
		seen[f.Name] = true

		for j, p := range f.Params {
			prim, ok := layout.ParsePrim(p)
			switch {
			case !ok:
				r.addError(fmt.Sprintf("%s.params[%d]", path, j), "unknown type %q", p)
			case prim == layout.Void:
				r.addError(fmt.Sprintf("%s.params[%d]", path, j), "void is not a parameter type")
			}
		}
		ret := layout.Void
		if f.Returns != "" {
			p, ok := layout.ParsePrim(f.Returns)
			if !ok {
				r.addError(path+".returns", "unknown type %q", f.Returns)
				continue
			}
			ret = p
		}
		switch f.FailsOn {
		case "", FailsNever:
		case FailsZero:
			if ret == layout.Void || ret == layout.Bool {
				r.addError(path+".fails_on", "zero needs a numeric or pointer result, got %s", ret)
			}
		case FailsFalse:
			if ret != layout.Bool {
				r.addError(path+".fails_on", "false needs a bool result, got %s", ret)
			}
		case FailsNegative:
			if !ret.IsSigned() {
				r.addError(path+".fails_on", "negative needs a signed result, got %s", ret)
			}
		default:
			r.addError(path+".fails_on", "unknown convention %q", f.FailsOn)
		}
	}

	cbSeen := make(map[string]bool)
	for i, cb := range c.Callbacks {
		path := fmt.Sprintf("callbacks[%d]", i)
		if cbSeen[cb.Name] {
			r.addError(path+".name", "duplicate callback %q", cb.Name)
		}
		cbSeen[cb.Name] = true
		if _, err := callbackSignature(cb); err != nil {
			r.addError(path, "%v", err)
		}
	}

	structSeen := make(map[string]bool)
	for i, s := range c.Structs {
		if structSeen[s.Name] {
			r.addError(fmt.Sprintf("structs[%d].name", i), "duplicate struct %q", s.Name)
		}
		structSeen[s.Name] = true
	}
	for i, s := range c.Structs {
		validateFields(r, fmt.Sprintf("structs[%d]", i), s.Fields, structSeen)
	}
	if r.IsValid() && len(c.Structs) > 0 {
		reg, err := c.Layouts()
		if err == nil {
			_, err = reg.CompileAll(layout.LP64)
		}
		if err != nil {
			r.addError("structs", "%v", err)
		}
	}

	enumSeen := make(map[string]bool)
	for i, e := range c.Enums {
		if enumSeen[e.Name] {
			r.addError(fmt.Sprintf("enums[%d].name", i), "duplicate enum %q", e.Name)
		}
		enumSeen[e.Name] = true
		if len(e.Values) == 0 && len(e.Strings) == 0 {
			r.addError(fmt.Sprintf("enums[%d]", i), "enum %q has no values", e.Name)
		}
	}
	for i, f := range c.Flags {
		if enumSeen[f.Name] {
			r.addError(fmt.Sprintf("flags[%d].name", i), "duplicate name %q", f.Name)
		}
		enumSeen[f.Name] = true
	}
	return r
}

func validateFields(r *ValidationResult, path string, fields []FieldDef, structs map[string]bool) {
	names := make(map[string]bool)
	for i, f := range fields {
		fp := fmt.Sprintf("%s.fields[%d]", path, i)
		if names[f.Name] {
			r.addError(fp+".name", "duplicate field %q", f.Name)
		}
		names[f.Name] = true

		kinds := 0
		for _, set := range []bool{f.Type != "", f.Struct != "", len(f.Fields) > 0, len(f.Union) > 0, f.Padding > 0} {
			if set {
				kinds++
			}
		}
		if kinds != 1 {
			r.addError(fp, "field %q needs exactly one of type, struct, fields, union or padding", f.Name)
			continue
		}
		if f.Type != "" {
			if p, ok := layout.ParsePrim(f.Type); !ok || p == layout.Void {
				r.addError(fp+".type", "unknown type %q", f.Type)
			}
		}
		if f.Struct != "" && !structs[f.Struct] {
			r.addError(fp+".struct", "unknown struct %q", f.Struct)
		}
		if len(f.Fields) > 0 {
			validateFields(r, fp, f.Fields, structs)
		}
		if len(f.Union) > 0 {
			validateFields(r, fp+".union", f.Union, structs)
		}
		if f.Tag != nil {
			if len(f.Union) == 0 {
				r.addError(fp+".tag", "tag on non-union field %q", f.Name)
				continue
			}
			if !names[f.Tag.Field] || f.Tag.Field == f.Name {
				r.addError(fp+".tag.field", "tag field %q must be declared before %q", f.Tag.Field, f.Name)
			}
			arms := make(map[string]bool)
			for _, a := range f.Union {
				arms[a.Name] = true
			}
			for v, arm := range f.Tag.Arms {
				if !arms[arm] {
					r.addError(fp+".tag.arms", "value %d names unknown arm %q", v, arm)
				}
			}
		}
	}
}
