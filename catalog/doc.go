// Package catalog is the symbol table of a C library: its functions,
// callback types, struct layouts, enums and flag sets, described in YAML.
//
// Catalog files are validated against an embedded JSON Schema and then
// checked semantically (unique names, resolvable struct references,
// failure conventions that match the result type, layouts that compile).
// Default returns the embedded SDL subset.
//
// Bind resolves a catalog against a loaded library and returns a Surface.
// Each function becomes a Proc whose Call type-checks arguments against
// the catalog, calls the symbol and maps the function's failure
// convention to a native_call_failed error carrying the library's error
// string:
//
//	surface, err := catalog.Bind(lib, catalog.Default())
//	create, _ := surface.Proc("SDL_CreateTray")
//	tray, err := create.Call(ctx, uintptr(0), "tooltip")
//
// # Failure conventions
//
//	fails_on: zero      NULL pointer, 0 or NULL string means failure
//	fails_on: false     a false bool means failure
//	fails_on: negative  a negative result means failure
//	fails_on: never     the result carries no failure (default)
//
// # Unions
//
// A union field may carry a tag naming an earlier sibling whose value
// selects the active arm. Surface.Decode uses these rules; a tag value
// with no arm decodes as an inactive union.
package catalog
