package wasm

// HostModule is the import module name guests use for dispatch.
const HostModule = "interop"

// Config describes how to instantiate a guest library.
type Config struct {
	// Name is the module instance name; it also names the library in logs.
	Name string
	// MemoryLimitPages caps guest memory in 64KiB pages. Zero keeps the
	// wazero default.
	MemoryLimitPages uint32
	// AllocExport and FreeExport name the guest's malloc/free pair.
	AllocExport string
	FreeExport  string
	// ErrorExport names the const char *(void) last-error accessor.
	ErrorExport string
}

func DefaultConfig() Config {
	return Config{
		Name:             "guest",
		MemoryLimitPages: 1024,
		AllocExport:      "malloc",
		FreeExport:       "free",
		ErrorExport:      "SDL_GetError",
	}
}
