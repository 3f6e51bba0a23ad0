// Package abi provides internal utilities shared by the layout calculator
// and the struct codec.
//
// # Contents
//
//   - helpers.go: alignment and overflow-checked arithmetic
//   - coerce.go: coercion of loosely-typed Go numbers onto C scalar widths
//
// This package is internal to the interop core.
package abi
