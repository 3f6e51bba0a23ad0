// Package sim is an in-process simulation of the SDL3 subset the interop
// core binds: trays and their menus, property groups, the error string,
// SDL_malloc/SDL_free, the current display mode and rectangle
// intersection.
//
// It implements native.Library, so catalog binding, trampolines and the
// resource wrappers run against it exactly as against a real library. The
// simulation also acts as a test harness:
//
//   - Dispatches counts every native-to-Go trampoline invocation
//   - FailNext makes the next call of a symbol fail with an error string
//   - WithoutSymbols hides symbols to exercise optional bindings
//   - Click and ClickAsync fire an entry as the user would, the latter
//     from a goroutine the caller does not control
//   - Shutdown invalidates the library; later calls fail with a closed
//     error and no callback fires
//
// Native callbacks are never invoked while the simulation holds its own
// lock, so handlers may call back into the library.
package sim
