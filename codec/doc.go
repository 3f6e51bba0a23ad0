// Package codec converts C structs between native memory and Go values.
//
// A struct is described by a compiled layout (see package layout). The codec
// reads and writes each field at its compiled offset and never guesses:
// a buffer shorter than the layout is a layout mismatch, a Go value that
// does not fit its C field is a type mismatch or overflow, and a union is
// decoded only through an arm chosen by the caller.
//
// # Value Mapping
//
//	C field         Go value
//	──────────────────────────────────────────
//	bool            bool
//	int8..uint64    int8..uint64 (exact width)
//	float/double    float32/float64
//	T*              handle.Handle (Borrowed, or Null when 0)
//	const char*     string
//	T[n]            []any of length n
//	struct          Record
//	union           Union{Arm, Value}
//
// On encode, integers of any Go type are accepted and range-checked against
// the field width, and pointer fields also accept uintptr and nil.
//
// # Unions
//
// C unions carry no tag in memory. Decode asks DecodeOptions.Discriminants
// which arm is active, passing the union's path and the sibling fields
// already decoded at that level, so a resolver can follow a tag field such
// as SDL_GamepadBinding.input_type:
//
//	opts := codec.DecodeOptions{Discriminants: codec.Tagged{
//	    "input": {Field: "input_type", Arms: map[int64]string{1: "button", 2: "axis", 3: "hat"}},
//	}.Resolve}
//
// Encode uses the Arm the caller set on the Union value.
//
// # Go Structs
//
// Marshal and Unmarshal map records onto Go structs. Fields are matched by
// the `c:"name"` tag, then by name ignoring case and underscores, so
// AxisMin binds axis_min.
// Field plans are computed once per layout and Go type.
package codec
