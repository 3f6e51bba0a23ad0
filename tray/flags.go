package tray

import (
	"sync"

	"github.com/wippyai/native-interop/catalog"
	"github.com/wippyai/native-interop/enums"
)

// EntryFlags is SDL_TrayEntryFlags.
type EntryFlags uint32

const (
	EntryButton   EntryFlags = 0x00000001
	EntryCheckbox EntryFlags = 0x00000002
	EntrySubmenu  EntryFlags = 0x00000004
	EntryDisabled EntryFlags = 0x80000000
	EntryChecked  EntryFlags = 0x40000000
)

const entryKinds = EntryButton | EntryCheckbox | EntrySubmenu

var entryFlags = sync.OnceValue(func() *enums.Flags {
	f, err := catalog.Default().FlagSet("SDL_TrayEntryFlags")
	if err != nil {
		panic(err)
	}
	return f
})

func (f EntryFlags) String() string {
	return entryFlags().Format(uint64(f))
}

// ParseEntryFlags parses "SDL_TRAYENTRY_BUTTON|SDL_TRAYENTRY_DISABLED".
func ParseEntryFlags(s string) (EntryFlags, error) {
	v, err := entryFlags().Parse(s)
	if err != nil {
		return 0, err
	}
	return EntryFlags(v), nil
}
