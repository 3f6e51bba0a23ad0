package catalog

import (
	"strings"

	"github.com/wippyai/native-interop/codec"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
)

// Layouts builds a registry holding every catalog struct.
func (c *Catalog) Layouts() (*layout.Registry, error) {
	reg := layout.NewRegistry()
	for _, s := range c.Structs {
		d, err := descriptor(s)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(d); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func descriptor(s Struct) (*layout.Descriptor, error) {
	fields, err := layoutFields(s.Name, s.Fields)
	if err != nil {
		return nil, err
	}
	return layout.Struct(s.Name, fields...), nil
}

func layoutFields(owner string, defs []FieldDef) ([]layout.Field, error) {
	out := make([]layout.Field, 0, len(defs))
	for _, f := range defs {
		t, err := fieldType(owner, f)
		if err != nil {
			return nil, err
		}
		out = append(out, layout.F(f.Name, t))
	}
	return out, nil
}

func fieldType(owner string, f FieldDef) (layout.Type, error) {
	var t layout.Type
	switch {
	case f.Padding > 0:
		return layout.Padding(f.Padding), nil
	case f.Type != "":
		p, ok := layout.ParsePrim(f.Type)
		if !ok {
			return t, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
				Path(owner, f.Name).
				CType(f.Type).
				Detail("unknown type %q", f.Type).
				Build()
		}
		t = layout.P(p)
	case f.Struct != "":
		t = layout.Ref(f.Struct)
	case len(f.Fields) > 0:
		inner, err := layoutFields(owner, f.Fields)
		if err != nil {
			return t, err
		}
		t = layout.StructOf(layout.Struct("", inner...))
	case len(f.Union) > 0:
		arms, err := layoutFields(owner, f.Union)
		if err != nil {
			return t, err
		}
		t = layout.Union(arms...)
	default:
		return t, errors.New(errors.PhaseCatalog, errors.KindInvalidInput).
			Path(owner, f.Name).
			Detail("field has no type").
			Build()
	}
	if f.Count > 0 {
		t = layout.Array(t, f.Count)
	}
	return t, nil
}

// Discriminants returns the union resolver for struct name, built from the
// tag entries of its fields and of the structs it embeds. Array indices
// in the union path are ignored, so every element shares its tag rules.
func (c *Catalog) Discriminants(name string) codec.Discriminants {
	tags := codec.Tagged{}
	c.collectTags(name, nil, tags, map[string]bool{})
	return func(path []string, siblings codec.Record) (string, bool) {
		return tags.Resolve(stripIndices(path), siblings)
	}
}

func (c *Catalog) collectTags(name string, prefix []string, tags codec.Tagged, active map[string]bool) {
	s, ok := c.Struct(name)
	if !ok || active[name] {
		return
	}
	active[name] = true
	defer delete(active, name)
	c.collectFieldTags(s.Fields, prefix, tags, active)
}

func (c *Catalog) collectFieldTags(fields []FieldDef, prefix []string, tags codec.Tagged, active map[string]bool) {
	for _, f := range fields {
		path := append(append([]string(nil), prefix...), f.Name)
		switch {
		case f.Struct != "":
			c.collectTags(f.Struct, path, tags, active)
		case len(f.Fields) > 0:
			c.collectFieldTags(f.Fields, path, tags, active)
		case len(f.Union) > 0:
			if f.Tag != nil {
				tags[strings.Join(path, ".")] = codec.Tag{Field: f.Tag.Field, Arms: f.Tag.Arms}
			}
			for _, arm := range f.Union {
				armPath := append(append([]string(nil), path...), arm.Name)
				switch {
				case arm.Struct != "":
					c.collectTags(arm.Struct, armPath, tags, active)
				case len(arm.Fields) > 0:
					c.collectFieldTags(arm.Fields, armPath, tags, active)
				}
			}
		}
	}
}

func stripIndices(path []string) []string {
	out := make([]string, 0, len(path))
	for _, p := range path {
		if strings.HasPrefix(p, "[") {
			continue
		}
		out = append(out, p)
	}
	return out
}
