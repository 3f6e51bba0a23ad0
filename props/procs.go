package props

import (
	"github.com/wippyai/native-interop/catalog"
)

type procs struct {
	create, global, destroy, copy, lock, unlock *catalog.Proc

	setPointerCleanup, setPointer, setString *catalog.Proc
	setNumber, setFloat, setBoolean          *catalog.Proc

	has, typeOf, clear, enumerate *catalog.Proc

	getPointer, getString, getNumber, getFloat, getBoolean *catalog.Proc
}

func bindProcs(s *catalog.Surface) (*procs, error) {
	p := &procs{}
	table := map[string]**catalog.Proc{
		"SDL_CreateProperties":              &p.create,
		"SDL_GetGlobalProperties":           &p.global,
		"SDL_DestroyProperties":             &p.destroy,
		"SDL_CopyProperties":                &p.copy,
		"SDL_LockProperties":                &p.lock,
		"SDL_UnlockProperties":              &p.unlock,
		"SDL_SetPointerPropertyWithCleanup": &p.setPointerCleanup,
		"SDL_SetPointerProperty":            &p.setPointer,
		"SDL_SetStringProperty":             &p.setString,
		"SDL_SetNumberProperty":             &p.setNumber,
		"SDL_SetFloatProperty":              &p.setFloat,
		"SDL_SetBooleanProperty":            &p.setBoolean,
		"SDL_HasProperty":                   &p.has,
		"SDL_GetPropertyType":               &p.typeOf,
		"SDL_ClearProperty":                 &p.clear,
		"SDL_EnumerateProperties":           &p.enumerate,
		"SDL_GetPointerProperty":            &p.getPointer,
		"SDL_GetStringProperty":             &p.getString,
		"SDL_GetNumberProperty":             &p.getNumber,
		"SDL_GetFloatProperty":              &p.getFloat,
		"SDL_GetBooleanProperty":            &p.getBoolean,
	}
	for name, dst := range table {
		proc, err := s.Proc(name)
		if err != nil {
			return nil, err
		}
		*dst = proc
	}
	return p, nil
}
