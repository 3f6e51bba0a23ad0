// Package errors provides structured error types for the native interop core.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/C type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindTypeMismatch).
//		Path("SDL_Rect", "w").
//		GoType("string").
//		CType("int32").
//		Detail("cannot convert string to integer").
//		Build()
//
// Or use convenience constructors for the interop taxonomy:
//
//	errors.LayoutMismatch(errors.PhaseDecode, "SDL_Rect", 16, 8)
//	errors.IndexOutOfRange(errors.PhaseResource, 5, 3)
//	errors.UseAfterDestroy(errors.PhaseResource, "tray")
//	errors.NativeCallFailed("SDL_CreateTray", "Tray not supported")
//	errors.SymbolUnavailable("SDL_CreateTray")
//
// All errors implement the standard error interface and support errors.Is/As.
// HasKind matches a kind anywhere in the cause chain regardless of phase.
package errors
