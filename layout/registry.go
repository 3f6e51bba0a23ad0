package layout

import (
	"sort"
	"sync"

	"github.com/wippyai/native-interop/errors"
)

// Registry holds named descriptors and compiles them per target.
// It is safe for concurrent use.
type Registry struct {
	descs    map[string]*Descriptor
	compiled map[string]map[string]*Compiled
	mu       sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		descs:    make(map[string]*Descriptor),
		compiled: make(map[string]map[string]*Compiled),
	}
}

// Register adds a descriptor under its name. Registering a second
// descriptor with the same name fails.
func (r *Registry) Register(d *Descriptor) error {
	if d == nil || d.Name == "" {
		return errors.InvalidInput(errors.PhaseLayout, "registry descriptors must be named")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.descs[d.Name]; exists {
		return errors.New(errors.PhaseLayout, errors.KindInvalidInput).
			CType(d.Name).
			Detail("struct %q already registered", d.Name).
			Build()
	}
	r.descs[d.Name] = d
	r.compiled = make(map[string]map[string]*Compiled)
	return nil
}

func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descs[name]
	return d, ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.descs))
	for n := range r.descs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Compile returns the layout of a registered struct on t.
func (r *Registry) Compile(name string, t Target) (*Compiled, error) {
	r.mu.RLock()
	if byTarget, ok := r.compiled[t.Name]; ok {
		if c, ok := byTarget[name]; ok {
			r.mu.RUnlock()
			return c, nil
		}
	}
	r.mu.RUnlock()

	all, err := r.CompileAll(t)
	if err != nil {
		return nil, err
	}
	c, ok := all[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLayout, "struct", name)
	}
	return c, nil
}

// CompileAll compiles every registered struct on t. Any unresolved
// reference or reference cycle fails the whole set.
func (r *Registry) CompileAll(t Target) (map[string]*Compiled, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if byTarget, ok := r.compiled[t.Name]; ok && len(byTarget) == len(r.descs) {
		return byTarget, nil
	}

	calc := NewCalculator(t, func(name string) (*Descriptor, bool) {
		d, ok := r.descs[name]
		return d, ok
	})
	out := make(map[string]*Compiled, len(r.descs))
	for name, d := range r.descs {
		c, err := calc.Compile(d)
		if err != nil {
			return nil, err
		}
		out[name] = c
	}
	r.compiled[t.Name] = out
	return out, nil
}
