package hotkey

import hk "golang.design/x/hotkey"

// X11 reports Alt as Mod1.
const modAlt = hk.Mod1
