// Package wasm runs a C library compiled to wasm32 inside wazero and
// exposes it as a native.Library.
//
// Pointers are offsets into the guest's exported linear memory and struct
// layouts use layout.Wasm32. Calls into the guest are serialized; a call
// made while the guest is already running on the same goroutine, such as
// from a callback handler, must pass the context the handler received.
//
// Guests reach Go callbacks through one host import:
//
//	(import "interop" "dispatch" (func (param i32 i64 i64 i64 i64) (result i64)))
//
// The first operand is the entry point returned by EntryPoint and the rest
// are up to four arguments widened to 64 bits. Guest-side trampolines are
// expected to forward C function pointer calls to it.
package wasm
