package sim

import (
	"context"

	"github.com/wippyai/native-interop/layout"
)

func (l *Library) define() {
	const (
		Void    = layout.Void
		Bool    = layout.Bool
		Int32   = layout.Int32
		Uint32  = layout.Uint32
		Int64   = layout.Int64
		Uint64  = layout.Uint64
		Float32 = layout.Float32
		Pointer = layout.Pointer
		String  = layout.String
	)

	// core
	l.def("SDL_GetVersion", l.getVersion, Int32)
	l.def("SDL_GetError", l.getError, String)
	l.def("SDL_ClearError", l.clearError, Bool)
	l.def("SDL_malloc", l.malloc, Pointer, Uint64)
	l.def("SDL_free", l.free, Void, Pointer)
	l.def("SDL_GetPrimaryDisplay", l.getPrimaryDisplay, Uint32)
	l.def("SDL_GetCurrentDisplayMode", l.getCurrentDisplayMode, Pointer, Uint32)
	l.def("SDL_GetRectIntersection", l.getRectIntersection, Bool, Pointer, Pointer, Pointer)

	// tray
	l.def("SDL_CreateTray", l.createTray, Pointer, Pointer, String)
	l.def("SDL_SetTrayIcon", l.setTrayIcon, Void, Pointer, Pointer)
	l.def("SDL_SetTrayTooltip", l.setTrayTooltip, Void, Pointer, String)
	l.def("SDL_CreateTrayMenu", l.createTrayMenu, Pointer, Pointer)
	l.def("SDL_GetTrayMenu", l.getTrayMenu, Pointer, Pointer)
	l.def("SDL_CreateTraySubmenu", l.createTraySubmenu, Pointer, Pointer)
	l.def("SDL_GetTraySubmenu", l.getTraySubmenu, Pointer, Pointer)
	l.def("SDL_GetTrayEntries", l.getTrayEntries, Pointer, Pointer, Pointer)
	l.def("SDL_RemoveTrayEntry", l.removeTrayEntry, Void, Pointer)
	l.def("SDL_InsertTrayEntryAt", l.insertTrayEntryAt, Pointer, Pointer, Int32, String, Uint32)
	l.def("SDL_SetTrayEntryLabel", l.setTrayEntryLabel, Void, Pointer, String)
	l.def("SDL_GetTrayEntryLabel", l.getTrayEntryLabel, String, Pointer)
	l.def("SDL_SetTrayEntryChecked", l.setTrayEntryChecked, Void, Pointer, Bool)
	l.def("SDL_GetTrayEntryChecked", l.getTrayEntryChecked, Bool, Pointer)
	l.def("SDL_SetTrayEntryEnabled", l.setTrayEntryEnabled, Void, Pointer, Bool)
	l.def("SDL_GetTrayEntryEnabled", l.getTrayEntryEnabled, Bool, Pointer)
	l.def("SDL_SetTrayEntryCallback", l.setTrayEntryCallback, Void, Pointer, Pointer, Pointer)
	l.def("SDL_ClickTrayEntry", l.clickTrayEntry, Void, Pointer)
	l.def("SDL_DestroyTray", l.destroyTray, Void, Pointer)
	l.def("SDL_GetTrayEntryParent", l.getTrayEntryParent, Pointer, Pointer)
	l.def("SDL_GetTrayMenuParentEntry", l.getTrayMenuParentEntry, Pointer, Pointer)
	l.def("SDL_GetTrayMenuParentTray", l.getTrayMenuParentTray, Pointer, Pointer)
	l.def("SDL_UpdateTrays", l.updateTrays, Void)

	// properties
	l.def("SDL_GetGlobalProperties", l.getGlobalProperties, Uint32)
	l.def("SDL_CreateProperties", l.createProperties, Uint32)
	l.def("SDL_CopyProperties", l.copyProperties, Bool, Uint32, Uint32)
	l.def("SDL_LockProperties", l.lockProperties, Bool, Uint32)
	l.def("SDL_UnlockProperties", l.unlockProperties, Void, Uint32)
	l.def("SDL_SetPointerPropertyWithCleanup", l.setPointerPropertyWithCleanup, Bool, Uint32, String, Pointer, Pointer, Pointer)
	l.def("SDL_SetPointerProperty", l.setPointerProperty, Bool, Uint32, String, Pointer)
	l.def("SDL_SetStringProperty", l.setStringProperty, Bool, Uint32, String, String)
	l.def("SDL_SetNumberProperty", l.setNumberProperty, Bool, Uint32, String, Int64)
	l.def("SDL_SetFloatProperty", l.setFloatProperty, Bool, Uint32, String, Float32)
	l.def("SDL_SetBooleanProperty", l.setBooleanProperty, Bool, Uint32, String, Bool)
	l.def("SDL_HasProperty", l.hasProperty, Bool, Uint32, String)
	l.def("SDL_GetPropertyType", l.getPropertyType, Int32, Uint32, String)
	l.def("SDL_GetPointerProperty", l.getPointerProperty, Pointer, Uint32, String, Pointer)
	l.def("SDL_GetStringProperty", l.getStringProperty, String, Uint32, String, String)
	l.def("SDL_GetNumberProperty", l.getNumberProperty, Int64, Uint32, String, Int64)
	l.def("SDL_GetFloatProperty", l.getFloatProperty, Float32, Uint32, String, Float32)
	l.def("SDL_GetBooleanProperty", l.getBooleanProperty, Bool, Uint32, String, Bool)
	l.def("SDL_ClearProperty", l.clearProperty, Bool, Uint32, String)
	l.def("SDL_EnumerateProperties", l.enumerateProperties, Bool, Uint32, Pointer, Pointer)
	l.def("SDL_DestroyProperties", l.destroyProperties, Void, Uint32)
}

// Invoke calls a trampoline entry point the way native code would, on the
// calling goroutine.
func (l *Library) Invoke(ctx context.Context, fn uintptr, args ...any) any {
	return l.invoke(ctx, fn, args...)
}
