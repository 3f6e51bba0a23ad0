package wasm

// testGuest assembles a small wasm32 module:
//
//	(import "interop" "dispatch" (func $dispatch (param i32 i64 i64 i64 i64) (result i64)))
//	(memory (export "memory") 1)
//	(global $heap (mut i32) (i32.const 1024))
//	(data (i32.const 16) "boom\00")
//	add(i32, i32) i32          sum
//	malloc(i32) i32            bump allocator, 8 byte aligned
//	free(i32)                  no-op
//	get_error() i32            returns 16
//	fire(i32 fn, i32 ud) i64   dispatch(fn, ud, 42, 0, 0)
//	strlen(i32) i32
//	mulf(f32, f32) f32
//	neg64(i64) i64
//	trap()                     unreachable
func testGuest() []byte {
	const (
		i32 = 0x7f
		i64 = 0x7e
		f32 = 0x7d
	)
	functype := func(params, results []byte) []byte {
		b := []byte{0x60}
		b = append(b, vec(params)...)
		return append(b, vec(results)...)
	}
	types := [][]byte{
		functype([]byte{i32, i64, i64, i64, i64}, []byte{i64}), // 0 dispatch
		functype([]byte{i32, i32}, []byte{i32}),                // 1 add
		functype([]byte{i32}, []byte{i32}),                     // 2 malloc, strlen
		functype([]byte{i32}, nil),                             // 3 free
		functype(nil, []byte{i32}),                             // 4 get_error
		functype([]byte{i32, i32}, []byte{i64}),                // 5 fire
		functype([]byte{i64}, []byte{i64}),                     // 6 neg64
		functype([]byte{f32, f32}, []byte{f32}),                // 7 mulf
		functype(nil, nil),                                     // 8 trap
	}

	var mod []byte
	mod = append(mod, 0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00)
	mod = append(mod, section(1, items(types...))...)

	imp := append(wasmName("interop"), wasmName("dispatch")...)
	imp = append(imp, 0x00, 0x00)
	mod = append(mod, section(2, items(imp))...)

	// add malloc free get_error fire strlen mulf neg64 trap
	mod = append(mod, section(3, vec([]byte{1, 2, 3, 4, 5, 2, 7, 6, 8}))...)
	mod = append(mod, section(5, items([]byte{0x00, 0x01}))...)
	mod = append(mod, section(6, items([]byte{i32, 0x01, 0x41, 0x80, 0x08, 0x0b}))...)

	export := func(n string, kind, idx byte) []byte {
		return append(wasmName(n), kind, idx)
	}
	mod = append(mod, section(7, items(
		export("memory", 0x02, 0),
		export("add", 0x00, 1),
		export("malloc", 0x00, 2),
		export("free", 0x00, 3),
		export("get_error", 0x00, 4),
		export("fire", 0x00, 5),
		export("strlen", 0x00, 6),
		export("mulf", 0x00, 7),
		export("neg64", 0x00, 8),
		export("trap", 0x00, 9),
	))...)

	body := func(locals []byte, code ...byte) []byte {
		b := append(locals, code...)
		return append(uleb(uint32(len(b))), b...)
	}
	noLocals := []byte{0x00}
	mod = append(mod, section(10, items(
		// add
		body(noLocals, 0x20, 0x00, 0x20, 0x01, 0x6a, 0x0b),
		// malloc: old heap stays on the stack, heap = (heap + n + 7) & -8
		body(noLocals, 0x23, 0x00,
			0x23, 0x00, 0x20, 0x00, 0x6a, 0x41, 0x07, 0x6a, 0x41, 0x78, 0x71, 0x24, 0x00,
			0x0b),
		// free
		body(noLocals, 0x0b),
		// get_error
		body(noLocals, 0x41, 0x10, 0x0b),
		// fire
		body(noLocals, 0x20, 0x00, 0x20, 0x01, 0xad, 0x42, 0x2a, 0x42, 0x00, 0x42, 0x00, 0x10, 0x00, 0x0b),
		// strlen
		body([]byte{0x01, 0x01, i32},
			0x02, 0x40, 0x03, 0x40,
			0x20, 0x00, 0x20, 0x01, 0x6a, 0x2d, 0x00, 0x00, 0x45, 0x0d, 0x01,
			0x20, 0x01, 0x41, 0x01, 0x6a, 0x21, 0x01, 0x0c, 0x00,
			0x0b, 0x0b,
			0x20, 0x01, 0x0b),
		// mulf
		body(noLocals, 0x20, 0x00, 0x20, 0x01, 0x94, 0x0b),
		// neg64
		body(noLocals, 0x42, 0x00, 0x20, 0x00, 0x7d, 0x0b),
		// trap
		body(noLocals, 0x00, 0x0b),
	))...)

	data := []byte{0x00, 0x41, 0x10, 0x0b}
	data = append(data, vec([]byte("boom\x00"))...)
	mod = append(mod, section(11, items(data))...)
	return mod
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}

func vec(b []byte) []byte {
	return append(uleb(uint32(len(b))), b...)
}

func wasmName(s string) []byte {
	return vec([]byte(s))
}

func items(entries ...[]byte) []byte {
	out := uleb(uint32(len(entries)))
	for _, e := range entries {
		out = append(out, e...)
	}
	return out
}

func section(id byte, payload []byte) []byte {
	return append([]byte{id}, vec(payload)...)
}
