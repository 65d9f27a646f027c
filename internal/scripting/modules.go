package scripting

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/noirbyte/gumshoe/internal/game/command"
	"github.com/noirbyte/gumshoe/internal/game/effect"
)

// registerModules registers the engine.* table into L. Every function is
// bound to the invocation current at call time; calling one outside a hook
// raises a Lua error.
//
// Precondition: L must be from NewSandboxedState.
// Postcondition: the engine global is defined in L.
func (m *Manager) registerModules(L *lua.LState) {
	engine := L.NewTable()

	L.SetField(engine, "setFlag", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		inv.State.SetFlag(L.CheckString(1))
		return 0
	}))
	L.SetField(engine, "clearFlag", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		inv.State.ClearFlag(L.CheckString(1))
		return 0
	}))
	L.SetField(engine, "hasFlag", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		L.Push(lua.LBool(inv.State.HasFlag(L.CheckString(1))))
		return 1
	}))
	L.SetField(engine, "incCounter", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		delta := int(L.OptInt64(2, 1))
		inv.State.IncCounter(L.CheckString(1), delta)
		return 0
	}))
	L.SetField(engine, "counter", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		L.Push(lua.LNumber(inv.State.Counter(L.CheckString(1))))
		return 1
	}))
	L.SetField(engine, "hasItem", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		L.Push(lua.LBool(inv.State.HasItem(L.CheckString(1))))
		return 1
	}))
	L.SetField(engine, "location", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		L.Push(lua.LString(inv.State.Location))
		return 1
	}))
	L.SetField(engine, "chapter", L.NewFunction(func(L *lua.LState) int {
		inv := m.mustInvocation(L)
		L.Push(lua.LNumber(inv.State.Chapter))
		return 1
	}))
	L.SetField(engine, "sendText", L.NewFunction(func(L *lua.LState) int {
		m.mustInvocation(L)
		m.pending = append(m.pending, effect.Text(L.CheckString(1)))
		return 0
	}))
	L.SetField(engine, "sendTemplate", L.NewFunction(func(L *lua.LState) int {
		m.mustInvocation(L)
		key := L.CheckString(1)
		vars := map[string]string{}
		if L.GetTop() >= 2 {
			tbl := L.CheckTable(2)
			tbl.ForEach(func(k, v lua.LValue) {
				vars[lua.LVAsString(k)] = lua.LVAsString(v)
			})
		}
		m.pending = append(m.pending, effect.Tpl(key, vars))
		return 0
	}))
	L.SetField(engine, "sendMedia", L.NewFunction(func(L *lua.LState) int {
		m.mustInvocation(L)
		media := effect.MediaRef{
			Type: L.CheckString(1),
			URL:  L.CheckString(2),
		}
		if L.GetTop() >= 3 {
			media.Caption = L.CheckString(3)
		}
		m.pending = append(m.pending, effect.Effect{SendMedia: []effect.MediaRef{media}})
		return 0
	}))

	L.SetGlobal("engine", engine)
}

// mustInvocation returns the current invocation or raises a Lua error when
// a function is called outside hook dispatch.
func (m *Manager) mustInvocation(L *lua.LState) *command.Invocation {
	if m.current == nil {
		L.RaiseError("engine functions are only available inside a hook")
		return nil
	}
	return m.current
}
