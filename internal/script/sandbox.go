package script

import lua "github.com/yuin/gopher-lua"

// unsafeGlobals are removed from base so scripts cannot load code or
// reach the host.
var unsafeGlobals = []string{
	"dofile",
	"loadfile",
	"load",
	"loadstring",
	"require",
	"module",
	"collectgarbage",
	"setfenv",
	"getfenv",
	"print",
}

// newSandboxedState opens only base, table, string, and math. io, os,
// debug, and package are never opened.
func newSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{
		SkipOpenLibs:        true,
		IncludeGoStackTrace: false,
	})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}
