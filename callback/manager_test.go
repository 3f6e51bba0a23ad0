package callback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	ierrors "github.com/wippyai/native-interop/errors"
	"github.com/wippyai/native-interop/layout"
	"github.com/wippyai/native-interop/native"
	"github.com/wippyai/native-interop/native/sim"
)

var trayCallback = Signature{
	Name:        "SDL_TrayCallback",
	Params:      []layout.Prim{layout.Pointer, layout.Pointer},
	Result:      layout.Void,
	UserData:    0,
	CrossThread: true,
}

var intCallback = Signature{
	Name:     "test_int_cb",
	Params:   []layout.Prim{layout.Pointer, layout.Int32},
	Result:   layout.Int32,
	UserData: 0,
}

func TestInstallValidation(t *testing.T) {
	m := NewManager(sim.New())
	noop := func(context.Context, []any) (any, error) { return nil, nil }

	tests := []struct {
		name string
		sig  Signature
		fn   Handler
		kind ierrors.Kind
	}{
		{"nil handler", trayCallback, nil, ierrors.KindInvalidInput},
		{"userdata out of range", Signature{Params: []layout.Prim{layout.Pointer}, UserData: 3}, noop, ierrors.KindInvalidInput},
		{"userdata not pointer", Signature{Params: []layout.Prim{layout.Int32}}, noop, ierrors.KindInvalidInput},
		{"string result", Signature{Params: []layout.Prim{layout.Pointer}, Result: layout.String}, noop, ierrors.KindUnsupported},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Install(tt.sig, tt.fn)
			if !ierrors.HasKind(err, tt.kind) {
				t.Errorf("got %v, want kind %v", err, tt.kind)
			}
		})
	}
}

func TestEntryPointSharedPerSignature(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)
	noop := func(context.Context, []any) (any, error) { return nil, nil }

	a, err := m.Install(trayCallback, noop)
	if err != nil {
		t.Fatal(err)
	}
	b, err := m.Install(trayCallback, noop)
	if err != nil {
		t.Fatal(err)
	}
	c, err := m.Install(intCallback, noop)
	if err != nil {
		t.Fatal(err)
	}
	if a.Entry != b.Entry {
		t.Error("same signature should share an entry point")
	}
	if a.Entry == c.Entry {
		t.Error("different signatures need different entry points")
	}
	if a.Key == b.Key || a.Key == 0 {
		t.Errorf("keys %d and %d", a.Key, b.Key)
	}
}

// countingLibrary slows entry point creation so concurrent installs overlap.
type countingLibrary struct {
	*sim.Library
	created atomic.Int32
}

func (l *countingLibrary) EntryPoint(sig native.Sig, d native.Dispatcher) (uintptr, error) {
	l.created.Add(1)
	time.Sleep(5 * time.Millisecond)
	return l.Library.EntryPoint(sig, d)
}

func TestConcurrentFirstInstall(t *testing.T) {
	lib := &countingLibrary{Library: sim.New()}
	m := NewManager(lib)
	noop := func(context.Context, []any) (any, error) { return nil, nil }

	const n = 8
	slots := make([]*Slot, n)
	var wg sync.WaitGroup
	for i := range slots {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Install(trayCallback, noop)
			if err != nil {
				t.Error(err)
				return
			}
			slots[i] = s
		}(i)
	}
	wg.Wait()

	if got := lib.created.Load(); got != 1 {
		t.Errorf("entry points created = %d, want 1", got)
	}
	for _, s := range slots[1:] {
		if s != nil && slots[0] != nil && s.Entry != slots[0].Entry {
			t.Error("concurrent installs should share one entry point")
		}
	}
}

func TestDispatchRoutesByKey(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)
	ctx := context.Background()

	var got []int
	mk := func(id int) Handler {
		return func(ctx context.Context, args []any) (any, error) {
			if !Dispatching(ctx) {
				t.Error("handler context should carry a dispatch frame")
			}
			got = append(got, id)
			return nil, nil
		}
	}
	s1, _ := m.Install(trayCallback, mk(1))
	s2, _ := m.Install(trayCallback, mk(2))

	lib.Invoke(ctx, s2.Entry, s2.Key, uintptr(0x10))
	lib.Invoke(ctx, s1.Entry, s1.Key, uintptr(0x10))

	if len(got) != 2 || got[0] != 2 || got[1] != 1 {
		t.Fatalf("dispatch order = %v", got)
	}
	if st := m.Stats(); st.Dispatched != 2 || st.Live != 2 {
		t.Errorf("stats = %+v", st)
	}
}

func TestResultConversion(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   Handler
		want any
	}{
		{"plain int", func(_ context.Context, args []any) (any, error) { return int(args[1].(int32)) * 2, nil }, int32(42)},
		{"error", func(context.Context, []any) (any, error) { return 7, errors.New("nope") }, int32(0)},
		{"panic", func(context.Context, []any) (any, error) { panic("boom") }, int32(0)},
		{"overflow", func(context.Context, []any) (any, error) { return int64(1) << 40, nil }, int32(0)},
		{"wrong type", func(context.Context, []any) (any, error) { return "x", nil }, int32(0)},
		{"nil", func(context.Context, []any) (any, error) { return nil, nil }, int32(0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := m.Install(intCallback, tt.fn)
			if err != nil {
				t.Fatal(err)
			}
			if got := lib.Invoke(ctx, s.Entry, s.Key, int32(21)); got != tt.want {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
	if st := m.Stats(); st.Failed != 4 {
		t.Errorf("Failed = %d, want 4", st.Failed)
	}
}

func TestUninstalledSlotNeverRuns(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)
	ctx := context.Background()

	var calls atomic.Int32
	s, _ := m.Install(intCallback, func(context.Context, []any) (any, error) {
		calls.Add(1)
		return 1, nil
	})
	if err := m.Uninstall(ctx, s); err != nil {
		t.Fatal(err)
	}
	if got := lib.Invoke(ctx, s.Entry, s.Key, int32(0)); got != int32(0) {
		t.Errorf("got %v", got)
	}
	if calls.Load() != 0 {
		t.Error("handler ran after uninstall")
	}
	if !m.Closed(s) {
		t.Error("slot should be closed")
	}
	if err := m.Uninstall(ctx, s); err != nil {
		t.Errorf("second uninstall: %v", err)
	}
	st := m.Stats()
	if st.Rejected != 1 || st.Uninstalled != 1 || st.Live != 0 {
		t.Errorf("stats = %+v", st)
	}

	// Unknown key.
	lib.Invoke(ctx, s.Entry, uintptr(9999), int32(0))
	if m.Stats().Rejected != 2 {
		t.Error("unknown key should be rejected")
	}
}

func TestUninstallWaitsForInflight(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	s, _ := m.Install(trayCallback, func(context.Context, []any) (any, error) {
		close(entered)
		<-release
		finished.Store(true)
		return nil, nil
	})

	go lib.Invoke(context.Background(), s.Entry, s.Key, uintptr(1))
	<-entered

	done := make(chan struct{})
	go func() {
		_ = m.Uninstall(context.Background(), s)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Uninstall returned while a dispatch was running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Uninstall never returned")
	}
	if !finished.Load() {
		t.Error("handler did not finish before Uninstall returned")
	}
}

func TestUninstallFromOwnHandler(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)

	var s *Slot
	var err error
	s, err = m.Install(trayCallback, func(ctx context.Context, _ []any) (any, error) {
		return nil, m.Uninstall(ctx, s)
	})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		lib.Invoke(context.Background(), s.Entry, s.Key, uintptr(1))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("self-uninstall deadlocked")
	}
	if !m.Closed(s) {
		t.Error("slot not closed")
	}
}

func TestReentrantDispatch(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)

	var depth atomic.Int32
	var s *Slot
	s, _ = m.Install(intCallback, func(ctx context.Context, args []any) (any, error) {
		n := args[1].(int32)
		depth.Add(1)
		if n == 0 {
			return 0, nil
		}
		inner := lib.Invoke(ctx, s.Entry, s.Key, n-1).(int32)
		return inner + 1, nil
	})

	if got := lib.Invoke(context.Background(), s.Entry, s.Key, int32(5)); got != int32(5) {
		t.Errorf("got %v", got)
	}
	if depth.Load() != 6 {
		t.Errorf("depth = %d", depth.Load())
	}
}

func TestConcurrentInstallDispatchUninstall(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)
	ctx := context.Background()

	var wg sync.WaitGroup
	var ran atomic.Int64
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s, err := m.Install(intCallback, func(context.Context, []any) (any, error) {
					ran.Add(1)
					return 1, nil
				})
				if err != nil {
					t.Error(err)
					return
				}
				lib.Invoke(ctx, s.Entry, s.Key, int32(i))
				_ = m.Uninstall(ctx, s)
				lib.Invoke(ctx, s.Entry, s.Key, int32(i))
			}
		}()
	}
	wg.Wait()

	st := m.Stats()
	if ran.Load() != 400 || st.Dispatched != 400 || st.Rejected != 400 || st.Live != 0 {
		t.Errorf("ran=%d stats=%+v", ran.Load(), st)
	}
}

func TestClose(t *testing.T) {
	lib := sim.New()
	m := NewManager(lib)
	noop := func(context.Context, []any) (any, error) { return nil, nil }
	for i := 0; i < 3; i++ {
		if _, err := m.Install(trayCallback, noop); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Close(context.Background()); err != nil {
		t.Fatal(err)
	}
	if st := m.Stats(); st.Live != 0 || st.Uninstalled != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestEntryPointFailure(t *testing.T) {
	lib := sim.New()
	lib.Shutdown()
	m := NewManager(lib)
	_, err := m.Install(trayCallback, func(context.Context, []any) (any, error) { return nil, nil })
	if !ierrors.HasKind(err, ierrors.KindClosed) {
		t.Errorf("got %v", err)
	}
}
