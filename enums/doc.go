// Package enums maps loosely typed C integers and strings onto names.
//
// An Enum is a closed set of named integer values, a Flags set is a
// bitmask whose named bits can be combined, and a StringEnum holds named
// string constants such as hint keys. Tables are usually built from a
// catalog.
//
//	e := enums.NewEnum("SDL_PropertyType", map[string]int64{"SDL_PROPERTY_TYPE_STRING": 2})
//	name, ok := e.Name(2)
//
//	f := enums.NewFlags("SDL_TrayEntryFlags", map[string]uint64{"SDL_TRAYENTRY_BUTTON": 1})
//	v, err := f.Parse("SDL_TRAYENTRY_BUTTON")
package enums
