package tray

import (
	"github.com/wippyai/native-interop/catalog"
)

type procs struct {
	create, destroy, setIcon, setTooltip *catalog.Proc

	createMenu, createSubmenu *catalog.Proc

	entries, insert, remove, click *catalog.Proc

	setLabel, getLabel, setChecked, getChecked *catalog.Proc
	setEnabled, getEnabled, setCallback        *catalog.Proc
}

func bindProcs(s *catalog.Surface) (*procs, error) {
	p := &procs{}
	table := map[string]**catalog.Proc{
		"SDL_CreateTray":           &p.create,
		"SDL_DestroyTray":          &p.destroy,
		"SDL_SetTrayIcon":          &p.setIcon,
		"SDL_SetTrayTooltip":       &p.setTooltip,
		"SDL_CreateTrayMenu":       &p.createMenu,
		"SDL_CreateTraySubmenu":    &p.createSubmenu,
		"SDL_GetTrayEntries":       &p.entries,
		"SDL_InsertTrayEntryAt":    &p.insert,
		"SDL_RemoveTrayEntry":      &p.remove,
		"SDL_ClickTrayEntry":       &p.click,
		"SDL_SetTrayEntryLabel":    &p.setLabel,
		"SDL_GetTrayEntryLabel":    &p.getLabel,
		"SDL_SetTrayEntryChecked":  &p.setChecked,
		"SDL_GetTrayEntryChecked":  &p.getChecked,
		"SDL_SetTrayEntryEnabled":  &p.setEnabled,
		"SDL_GetTrayEntryEnabled":  &p.getEnabled,
		"SDL_SetTrayEntryCallback": &p.setCallback,
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
