package catalog

import (
	"github.com/wippyai/native-interop/enums"
	"github.com/wippyai/native-interop/errors"
)

// Enum builds the integer table of a catalog enum.
func (c *Catalog) Enum(name string) (*enums.Enum, error) {
	for _, e := range c.Enums {
		if e.Name == name {
			return enums.NewEnum(e.Name, e.Values), nil
		}
	}
	return nil, errors.NotFound(errors.PhaseCatalog, "enum", name)
}

// StringEnum builds the string table of a catalog enum.
func (c *Catalog) StringEnum(name string) (*enums.StringEnum, error) {
	for _, e := range c.Enums {
		if e.Name == name {
			return enums.NewStringEnum(e.Name, e.Strings), nil
		}
	}
	return nil, errors.NotFound(errors.PhaseCatalog, "enum", name)
}

func (c *Catalog) FlagSet(name string) (*enums.Flags, error) {
	for _, f := range c.Flags {
		if f.Name == name {
			return enums.NewFlags(f.Name, f.Bits), nil
		}
	}
	return nil, errors.NotFound(errors.PhaseCatalog, "flags", name)
}
