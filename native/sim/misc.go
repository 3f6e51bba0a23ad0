package sim

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/native-interop/codec"
	"github.com/wippyai/native-interop/layout"
)

// Version is the SDL_VERSIONNUM the simulation reports.
const Version int32 = 3*1000000 + 2*1000 + 0

// PrimaryDisplay is the id of the single simulated display.
const PrimaryDisplay uint32 = 1

var (
	layoutsOnce sync.Once
	rectLayout  *layout.Compiled
	modeLayout  *layout.Compiled
)

func hostLayouts() {
	layoutsOnce.Do(func() {
		var err error
		rectLayout, err = layout.Struct("SDL_Rect",
			layout.F("x", layout.P(layout.Int32)),
			layout.F("y", layout.P(layout.Int32)),
			layout.F("w", layout.P(layout.Int32)),
			layout.F("h", layout.P(layout.Int32)),
		).Compile(layout.Host)
		if err != nil {
			panic(err)
		}
		modeLayout, err = layout.Struct("SDL_DisplayMode",
			layout.F("displayID", layout.P(layout.Uint32)),
			layout.F("format", layout.P(layout.Uint32)),
			layout.F("w", layout.P(layout.Int32)),
			layout.F("h", layout.P(layout.Int32)),
			layout.F("pixel_density", layout.P(layout.Float32)),
			layout.F("refresh_rate", layout.P(layout.Float32)),
			layout.F("refresh_rate_numerator", layout.P(layout.Int32)),
			layout.F("refresh_rate_denominator", layout.P(layout.Int32)),
			layout.F("internal", layout.P(layout.Pointer)),
		).Compile(layout.Host)
		if err != nil {
			panic(err)
		}
	})
}

type rect struct {
	X, Y, W, H int32
}

func (r rect) empty() bool { return r.W <= 0 || r.H <= 0 }

func (l *Library) getVersion(context.Context, []any) any { return Version }

func (l *Library) getError(context.Context, []any) any {
	return l.LastError()
}

func (l *Library) clearError(context.Context, []any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastError = ""
	return true
}

func (l *Library) malloc(_ context.Context, a []any) any {
	size := a[0].(uint64)
	if size > 1<<30 {
		l.mu.Lock()
		l.setError("Out of memory")
		l.mu.Unlock()
		return uintptr(0)
	}
	addr, err := l.mem.Alloc(uint32(size), 16)
	if err != nil {
		l.mu.Lock()
		l.setError("Out of memory")
		l.mu.Unlock()
		return uintptr(0)
	}
	return addr
}

func (l *Library) free(_ context.Context, a []any) any {
	if p := a[0].(uintptr); p != 0 {
		l.mem.Free(p, 0, 0)
	}
	return nil
}

func (l *Library) getPrimaryDisplay(context.Context, []any) any { return PrimaryDisplay }

// getCurrentDisplayMode returns a library-owned SDL_DisplayMode that stays
// valid until shutdown.
func (l *Library) getCurrentDisplayMode(_ context.Context, a []any) any {
	if a[0].(uint32) != PrimaryDisplay {
		l.mu.Lock()
		l.setError("Invalid display")
		l.mu.Unlock()
		return uintptr(0)
	}
	hostLayouts()

	l.mu.Lock()
	addr := l.displayBuf
	l.mu.Unlock()
	if addr != 0 {
		return addr
	}

	addr, err := l.mem.Alloc(modeLayout.Size, modeLayout.Align)
	if err != nil {
		return uintptr(0)
	}
	mode := codec.Record{
		"displayID":                PrimaryDisplay,
		"format":                   uint32(0x16161804), // SDL_PIXELFORMAT_XRGB8888
		"w":                        int32(1920),
		"h":                        int32(1080),
		"pixel_density":            float32(1),
		"refresh_rate":             float32(60),
		"refresh_rate_numerator":   int32(60),
		"refresh_rate_denominator": int32(1),
		"internal":                 uintptr(0),
	}
	if err := codec.Encode(modeLayout, mode, l.mem, addr, codec.EncodeOptions{Allocator: l.mem}); err != nil {
		Logger().Error("encode display mode", zap.Error(err))
		return uintptr(0)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.displayBuf != 0 {
		l.mem.Free(addr, 0, 0)
		return l.displayBuf
	}
	l.displayBuf = addr
	return addr
}

func (l *Library) readRect(addr uintptr) (rect, bool) {
	var r rect
	rec, err := codec.Decode(rectLayout, l.mem, addr, codec.DecodeOptions{})
	if err != nil {
		return r, false
	}
	return r, codec.Unmarshal(rectLayout, rec, &r) == nil
}

// getRectIntersection follows SDL_GetRectIntersection, including zeroing
// the result size when either input is empty.
func (l *Library) getRectIntersection(_ context.Context, a []any) any {
	hostLayouts()
	pa, pb, out := a[0].(uintptr), a[1].(uintptr), a[2].(uintptr)
	fail := func(param string) any {
		l.mu.Lock()
		l.invalid(param)
		l.mu.Unlock()
		return false
	}
	switch {
	case pa == 0:
		return fail("A")
	case pb == 0:
		return fail("B")
	case out == 0:
		return fail("result")
	}
	ra, ok := l.readRect(pa)
	if !ok {
		return fail("A")
	}
	rb, ok := l.readRect(pb)
	if !ok {
		return fail("B")
	}

	var res rect
	if !ra.empty() && !rb.empty() {
		amin, amax := ra.X, ra.X+ra.W
		bmin, bmax := rb.X, rb.X+rb.W
		res.X = max(amin, bmin)
		res.W = min(amax, bmax) - res.X

		amin, amax = ra.Y, ra.Y+ra.H
		bmin, bmax = rb.Y, rb.Y+rb.H
		res.Y = max(amin, bmin)
		res.H = min(amax, bmax) - res.Y
	} else if prev, ok := l.readRect(out); ok {
		res.X, res.Y = prev.X, prev.Y
	}

	rec, err := codec.Marshal(rectLayout, res)
	if err == nil {
		err = codec.Encode(rectLayout, rec, l.mem, out, codec.EncodeOptions{})
	}
	if err != nil {
		Logger().Error("encode rect", zap.Error(err))
		return false
	}
	return !res.empty()
}
