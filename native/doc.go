// Package native defines the boundary between the interop core and a loaded
// C library.
//
// A Library resolves symbols, performs calls and mints trampoline entry
// points. Three implementations exist:
//
//   - native/dl: a shared library opened with dlopen through purego
//   - native/wasm: a C library compiled to wasm32 and run by wazero
//   - native/sim: an in-process simulation used by tests and examples
//
// Values cross the boundary in canonical Go types so every backend agrees
// on what a call returns:
//
//	Prim        Go type
//	──────────────────────
//	bool        bool
//	int8..      int8..uint64
//	float32/64  float32/float64
//	pointer     uintptr
//	string      string (nil is NULL)
//	void        nil
//
// After Close every method fails with a closed error; a backend never
// touches native state after shutdown.
package native
