// Package interop is the native interop core for binding a C-ABI multimedia
// library (SDL3-style) from Go.
//
// The core turns raw C structures, enums, bitflags and function pointers into
// memory-safe Go values. It does not implement any multimedia behaviour; its
// job is crossing the boundary safely.
//
// # Architecture Overview
//
//	interop/            Root package with Memory and Allocator interfaces
//	├── layout/         C struct layout descriptors and offset calculation
//	├── codec/          Struct codec: native bytes <-> Record / Go structs
//	├── handle/         Native handle registry with owned/borrowed tracking
//	├── callback/       Trampoline manager for Go closures called from C
//	├── native/         Library boundary contract
//	│   ├── sim/        In-process simulated library (tests, examples)
//	│   ├── dl/         dlopen backend built on purego
//	│   └── wasm/       wasm32 backend built on wazero
//	├── catalog/        Symbol table: functions, structs, enums from YAML
//	├── enums/          Enum and bitflag tables
//	├── props/          Property bags over native property groups
//	├── tray/           Resource wrappers: Tray -> Menu -> Entry
//	├── errors/         Structured error types
//	├── cmd/interop/    CLI: catalog listing, layouts, probe, browser
//	└── examples/tray/  Runnable tray example
//
// # Quick Start
//
//	lib := sim.New()
//	surface, err := catalog.Bind(lib, catalog.Default())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	callbacks := callback.NewManager(lib)
//
//	t, err := tray.New(ctx, surface, callbacks, 0, "My App")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Destroy(ctx)
//
//	menu, _ := t.CreateMenu(ctx)
//	quit, _ := menu.InsertEntryAt(ctx, -1, "Quit", tray.EntryButton)
//	quit.OnClick(ctx, func(ctx context.Context, e *tray.Entry) {
//	    t.Destroy(ctx)
//	})
//
// # Thread Safety
//
// The callback manager and handle registry are safe for concurrent use;
// native code may invoke trampolines from threads Go does not control.
// Resource wrappers serialize their own bookkeeping, while the native
// library's internal locking governs the native objects themselves.
//
// # Lifecycle
//
// Library initialization and shutdown are external preconditions. After a
// library is closed every call fails with a closed error instead of
// touching freed native state.
package interop
