package dl

import "os"

// EnvLibrary names the environment variable DefaultConfig reads the
// library path from.
const EnvLibrary = "NATIVE_INTEROP_LIBRARY"

// Config describes how to open a library.
type Config struct {
	// Path is handed to dlopen as is.
	Path string
	// Mode holds dlopen flags. Zero means RTLD_NOW|RTLD_GLOBAL.
	Mode int
	// AllocSymbol and FreeSymbol name the malloc/free pair used for
	// memory the library may free. Leave empty to disable allocation.
	AllocSymbol string
	FreeSymbol  string
	// ErrorSymbol names the const char *(void) last-error accessor.
	ErrorSymbol string
}

// DefaultConfig returns the SDL defaults with the path from EnvLibrary.
func DefaultConfig() Config {
	return Config{
		Path:        os.Getenv(EnvLibrary),
		AllocSymbol: "SDL_malloc",
		FreeSymbol:  "SDL_free",
		ErrorSymbol: "SDL_GetError",
	}
}
