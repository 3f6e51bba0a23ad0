// Package layout describes C struct layouts and computes their byte-exact
// offsets for a target ABI.
//
// A Descriptor lists fields in declaration order. Compiling it against a
// Target applies natural alignment: every field is placed at the next
// multiple of its own alignment, a struct's size is rounded up to its
// largest member alignment, and a union's size is its largest arm rounded
// to its largest arm alignment. Explicit Padding fields are the only bytes
// the calculator does not derive itself.
//
// # Usage
//
//	rect := layout.Struct("SDL_Rect",
//	    layout.F("x", layout.P(layout.Int32)),
//	    layout.F("y", layout.P(layout.Int32)),
//	    layout.F("w", layout.P(layout.Int32)),
//	    layout.F("h", layout.P(layout.Int32)),
//	)
//	c, err := rect.Compile(layout.Host)
//	// c.Size == 16, c.Fields[2].Offset == 8
//
// Named descriptors can reference one another through a Registry, which
// resolves Ref types and rejects reference cycles.
//
// Descriptors must not be mutated after their first compilation; compiled
// results are cached by descriptor identity.
package layout
