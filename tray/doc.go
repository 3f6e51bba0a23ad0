// Package tray wraps the native system tray API as a tree of resources:
// a Tray owns one Menu, a Menu owns its Entries, and an Entry created
// with EntrySubmenu may own a nested Menu.
//
// Only the Tray handle is owned. Menus and entries are borrowed from it
// and die with it, so destroying a Tray cascades depth first through
// every menu and entry below it. Each node uninstalls its callback slots
// before the handle above it is released; once a node is destroyed every
// method fails with use_after_destroy without reaching native code.
//
// Click callbacks run through the callback manager and may arrive on a
// thread Go does not control. A callback may destroy the tray it belongs
// to.
package tray
