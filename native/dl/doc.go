// Package dl loads a C shared library into the process with purego and
// exposes it as a native.Library.
//
// Functions are called through purego.RegisterFunc over function types
// built with reflect from each signature, so no cgo is needed. Entry points
// for callbacks come from purego.NewCallback; purego caps how many exist
// and never frees them, which is why the callback manager shares one entry
// point per signature.
//
// Pointers refer to the process address space. Memory reads and writes go
// straight through unsafe pointers and cannot detect a bad address.
package dl
