//go:build darwin || linux

package dl

import (
	"context"
	"os"
	"runtime"
	"sort"
	"testing"

	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
)

func libcPath() string {
	if runtime.GOOS == "darwin" {
		return "/usr/lib/libSystem.B.dylib"
	}
	return "libc.so.6"
}

func openLibc(t *testing.T) *Library {
	t.Helper()
	l, err := Open(Config{Path: libcPath(), AllocSymbol: "malloc", FreeSymbol: "free"})
	if err != nil {
		t.Skipf("libc not loadable: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Error("empty path should fail")
	}
	if _, err := Open(Config{Path: "/nonexistent/libnothing.so"}); err == nil {
		t.Error("missing file should fail")
	}
}

func TestLibcCall(t *testing.T) {
	l := openLibc(t)
	ctx := context.Background()

	strlen, err := l.Proc("strlen")
	if err != nil {
		t.Fatal(err)
	}
	sig := native.Sig{Params: []layout.Prim{layout.String}, Result: layout.Uint64}
	n, err := l.Call(ctx, strlen, sig, []any{"interop"})
	if err != nil {
		t.Fatal(err)
	}
	if n != uint64(7) {
		t.Errorf("strlen = %v", n)
	}

	if _, err := l.Proc("definitely_not_a_symbol"); !errors.HasKind(err, errors.KindSymbolUnavailable) {
		t.Errorf("Proc = %v", err)
	}
	if _, err := l.Call(ctx, strlen, sig, []any{42}); !errors.HasKind(err, errors.KindTypeMismatch) {
		t.Errorf("bad arg = %v", err)
	}
}

func TestLibcAllocator(t *testing.T) {
	l := openLibc(t)
	a := l.Allocator()
	addr, err := a.Alloc(16, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Free(addr, 16, 8)
	mem := l.Memory()
	if err := mem.WriteU64(addr, 0x0102030405060708); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU64(addr); v != 0x0102030405060708 {
		t.Errorf("ReadU64 = %#x", v)
	}
}

// qsort has no userdata slot, so the comparator goes straight through
// EntryPoint rather than the callback manager.
func TestLibcCallback(t *testing.T) {
	l := openLibc(t)
	ctx := context.Background()

	mem := l.Memory()
	var calls int
	compar := native.Sig{Params: []layout.Prim{layout.Pointer, layout.Pointer}, Result: layout.Int32}
	entry, err := l.EntryPoint(compar, func(_ context.Context, args []any) any {
		calls++
		a, _ := mem.ReadU32(args[0].(uintptr))
		b, _ := mem.ReadU32(args[1].(uintptr))
		return int32(a) - int32(b)
	})
	if err != nil {
		t.Skipf("callbacks unsupported here: %v", err)
	}

	values := []uint32{5, 3, 9, 1, 7}
	size := uint32(4 * len(values))
	alloc := l.Allocator()
	arr, err := alloc.Alloc(size, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer alloc.Free(arr, size, 4)
	for i, v := range values {
		if err := mem.WriteU32(arr+uintptr(i*4), v); err != nil {
			t.Fatal(err)
		}
	}
	qsort, err := l.Proc("qsort")
	if err != nil {
		t.Fatal(err)
	}
	sig := native.Sig{Params: []layout.Prim{layout.Pointer, layout.Uint64, layout.Uint64, layout.Pointer}}
	if _, err := l.Call(ctx, qsort, sig, []any{arr, uint64(len(values)), uint64(4), entry}); err != nil {
		t.Fatal(err)
	}

	got := make([]uint32, len(values))
	for i := range got {
		got[i], _ = mem.ReadU32(arr + uintptr(i*4))
	}
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }) {
		t.Errorf("not sorted: %v", got)
	}
	if calls == 0 {
		t.Error("comparator never ran")
	}
}

func TestClosedLibrary(t *testing.T) {
	l := openLibc(t)
	strlen, err := l.Proc("strlen")
	if err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	sig := native.Sig{Params: []layout.Prim{layout.String}, Result: layout.Uint64}
	if _, err := l.Call(context.Background(), strlen, sig, []any{"x"}); !errors.HasKind(err, errors.KindClosed) {
		t.Errorf("Call after Close = %v", err)
	}
	if l.Close() != nil {
		t.Error("second Close should be a no-op")
	}
}

// TestSDL binds the full catalog against a real SDL3 build named by
// NATIVE_INTEROP_LIBRARY.
func TestSDL(t *testing.T) {
	if os.Getenv(EnvLibrary) == "" {
		t.Skip(EnvLibrary + " not set")
	}
	l, err := Open(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	s, err := catalog.Bind(l, catalog.Default())
	if err != nil {
		t.Fatal(err)
	}
	p, err := s.Proc("SDL_GetVersion")
	if err != nil {
		t.Fatal(err)
	}
	v, err := p.Call(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if v.(int32) < 3000000 {
		t.Errorf("version = %v", v)
	}
}
