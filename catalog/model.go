package catalog

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Catalog is a parsed symbol table: the functions, callback types,
// structs, enums and flag sets of one C library.
type Catalog struct {
	Name      string     `yaml:"name"`
	Version   string     `yaml:"version"`
	Functions []Function `yaml:"functions"`
	Callbacks []Callback `yaml:"callbacks"`
	Structs   []Struct   `yaml:"structs"`
	Enums     []Enum     `yaml:"enums"`
	Flags     []Flags    `yaml:"flags"`
}

// FailsOn is the C convention a function uses to report failure.
type FailsOn string

const (
	FailsNever    FailsOn = "never"
	FailsZero     FailsOn = "zero"
	FailsFalse    FailsOn = "false"
	FailsNegative FailsOn = "negative"
)

// UnmarshalYAML accepts both the quoted and the bare boolean spelling of
// "false", which YAML would otherwise resolve to a bool.
func (f *FailsOn) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: fails_on must be a scalar", node.Line)
	}
	if node.Tag == "!!bool" {
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*f = FailsOn(strconv.FormatBool(b))
		return nil
	}
	*f = FailsOn(node.Value)
	return nil
}

type Function struct {
	Name        string   `yaml:"name"`
	Group       string   `yaml:"group"`
	Description string   `yaml:"description"`
	Params      []string `yaml:"params"`
	Returns     string   `yaml:"returns"`
	FailsOn     FailsOn  `yaml:"fails_on"`
	Optional    bool     `yaml:"optional"`
	ThreadSafe  bool     `yaml:"thread_safe"`
}

// Callback is a C function pointer type.
type Callback struct {
	Name     string   `yaml:"name"`
	Params   []string `yaml:"params"`
	Returns  string   `yaml:"returns"`
	UserData int      `yaml:"userdata"`
	// Thread is "same" when the library only invokes the callback on the
	// registering thread; anything else is treated as cross-thread.
	Thread string `yaml:"thread"`
}

type Struct struct {
	Name   string     `yaml:"name"`
	Fields []FieldDef `yaml:"fields"`
}

// FieldDef is one struct member or union arm. Exactly one of Type, Struct,
// Fields, Union or Padding describes its type; Count turns it into an
// array.
type FieldDef struct {
	Name    string     `yaml:"name"`
	Type    string     `yaml:"type"`
	Struct  string     `yaml:"struct"`
	Fields  []FieldDef `yaml:"fields"`
	Union   []FieldDef `yaml:"union"`
	Tag     *TagDef    `yaml:"tag"`
	Count   uint32     `yaml:"count"`
	Padding uint32     `yaml:"padding"`
}

// TagDef names the sibling field whose value selects a union arm.
type TagDef struct {
	Field string           `yaml:"field"`
	Arms  map[int64]string `yaml:"arms"`
}

type Enum struct {
	Name   string           `yaml:"name"`
	Values map[string]int64 `yaml:"values"`
	// Strings holds string-valued constants such as hint names.
	Strings map[string]string `yaml:"strings"`
}

type Flags struct {
	Name string            `yaml:"name"`
	Bits map[string]uint64 `yaml:"bits"`
}

// Function returns the function called name.
func (c *Catalog) Function(name string) (Function, bool) {
	for _, f := range c.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return Function{}, false
}

func (c *Catalog) Callback(name string) (Callback, bool) {
	for _, cb := range c.Callbacks {
		if cb.Name == name {
			return cb, true
		}
	}
	return Callback{}, false
}

func (c *Catalog) Struct(name string) (Struct, bool) {
	for _, s := range c.Structs {
		if s.Name == name {
			return s, true
		}
	}
	return Struct{}, false
}

// Groups returns function names keyed by group, in catalog order.
func (c *Catalog) Groups() map[string][]string {
	out := make(map[string][]string)
	for _, f := range c.Functions {
		out[f.Group] = append(out[f.Group], f.Name)
	}
	return out
}
