// Package props wraps native property groups (SDL_PropertiesID) as Bags
// of named, typed values.
//
// A Bag holds pointers, strings, 64-bit numbers, floats and booleans.
// Getters convert between types the way the native library does and fall
// back to the supplied default when a name is missing. Setting a nil value
// clears the property.
//
// Pointers may carry a Go cleanup function. The cleanup runs through a
// callback trampoline when the value is overwritten, cleared or the bag is
// destroyed, after which its slot is uninstalled.
//
// Bags created with New are owned and released by Destroy. Bags obtained
// with Global or Wrap are borrowed: Destroy only detaches them. Any call on
// a destroyed bag fails with use_after_destroy.
package props
