package layout

import (
	"strings"
	"unsafe"
)

// Target is the ABI a layout is compiled for. Only pointer width varies
// between the supported targets; scalar sizes follow the LP64/ILP32 C model.
type Target struct {
	Name         string
	PointerSize  uint32
	PointerAlign uint32
}

var (
	// Host is the running process.
	Host = Target{
		Name:         "host",
		PointerSize:  uint32(unsafe.Sizeof(uintptr(0))),
		PointerAlign: uint32(unsafe.Alignof(uintptr(0))),
	}
	// Wasm32 is a C library compiled to wasm32 linear memory.
	Wasm32 = Target{Name: "wasm32", PointerSize: 4, PointerAlign: 4}
	// LP64 is a 64-bit Unix library regardless of the host.
	LP64 = Target{Name: "lp64", PointerSize: 8, PointerAlign: 8}
)

func ParseTarget(s string) (Target, bool) {
	switch strings.ToLower(s) {
	case "", "host":
		return Host, true
	case "wasm32", "wasm":
		return Wasm32, true
	case "lp64", "64":
		return LP64, true
	}
	return Target{}, false
}

func (t Target) String() string {
	return t.Name
}
