package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// newState creates a sandboxed Lua state.
func newState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// doFile runs a script, turning a runtime panic into an error.
func doFile(L *lua.LState, path string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return L.DoFile(path)
}

// callGlobal calls a global function if it exists. ok is false when the
// function is not defined.
func callGlobal(L *lua.LState, name string, args ...lua.LValue) (ret []lua.LValue, ok bool, err error) {
	fn := L.GetGlobal(name)
	if fn == lua.LNil {
		return nil, false, nil
	}
	if fn.Type() != lua.LTFunction {
		return nil, true, fmt.Errorf("%q is not a function (got %s)", name, fn.Type())
	}
	ret, err = call(L, fn, args...)
	return ret, true, err
}

// call invokes fn and collects every return value.
func call(L *lua.LState, fn lua.LValue, args ...lua.LValue) (ret []lua.LValue, err error) {
	top := L.GetTop()
	defer func() {
		if r := recover(); r != nil {
			L.SetTop(top)
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()

	L.Push(fn)
	for _, arg := range args {
		L.Push(arg)
	}
	if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
		return nil, err
	}

	n := L.GetTop() - top
	ret = make([]lua.LValue, n)
	for i := 0; i < n; i++ {
		ret[i] = L.Get(top + i + 1)
	}
	L.Pop(n)
	return ret, nil
}

// succeeded reads a hook result: no value or any truthy first value is
// success.
func succeeded(ret []lua.LValue) bool {
	return len(ret) == 0 || lua.LVAsBool(ret[0])
}

func stringField(t *lua.LTable, key string) string {
	if s, ok := t.RawGetString(key).(lua.LString); ok {
		return string(s)
	}
	return ""
}

func stringList(t *lua.LTable, key string) []string {
	list, ok := t.RawGetString(key).(*lua.LTable)
	if !ok {
		return nil
	}
	var out []string
	for i := 1; i <= list.Len(); i++ {
		if s, ok := list.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}
