package lua

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/platinummonkey/conduit/pkg/plugins"
)

var valueTypes = map[string]plugins.ValueType{
	"void":   plugins.ValueVoid,
	"bool":   plugins.ValueBool,
	"int":    plugins.ValueInt,
	"int64":  plugins.ValueInt64,
	"string": plugins.ValueString,
	"any":    plugins.ValueAny,
}

// toLua converts an IPC argument.
func toLua(L *lua.LState, v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []string:
		t := L.NewTable()
		for _, s := range x {
			t.Append(lua.LString(s))
		}
		return t
	default:
		ud := L.NewUserData()
		ud.Value = v
		return ud
	}
}

// fromLua converts a command result to the declared type.
func fromLua(v lua.LValue, want plugins.ValueType) (any, error) {
	switch want {
	case plugins.ValueVoid:
		return nil, nil
	case plugins.ValueBool:
		return lua.LVAsBool(v), nil
	case plugins.ValueInt, plugins.ValueInt64:
		n, ok := v.(lua.LNumber)
		if !ok {
			return nil, fmt.Errorf("%w: command returned %s, declared %s", plugins.ErrIPCArgs, v.Type(), want)
		}
		if want == plugins.ValueInt {
			return int(n), nil
		}
		return int64(n), nil
	case plugins.ValueString:
		s, ok := v.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("%w: command returned %s, declared %s", plugins.ErrIPCArgs, v.Type(), want)
		}
		return string(s), nil
	}

	switch x := v.(type) {
	case *lua.LNilType:
		return nil, nil
	case lua.LBool:
		return bool(x), nil
	case lua.LNumber:
		return float64(x), nil
	case lua.LString:
		return string(x), nil
	case *lua.LUserData:
		return x.Value, nil
	}
	return v, nil
}

// marshalFor returns the IPC marshaller for commands defined in L.
func marshalFor(L *lua.LState) plugins.MarshalFunc {
	return func(fn any, params []plugins.ValueType, ret plugins.ValueType, args []any) (any, error) {
		lfn, ok := fn.(*lua.LFunction)
		if !ok {
			return nil, fmt.Errorf("%w: command is %T, not a Lua function", plugins.ErrIPCArgs, fn)
		}
		if len(args) != len(params) {
			return nil, fmt.Errorf("%w: want %d arguments, got %d", plugins.ErrIPCArgs, len(params), len(args))
		}

		in := make([]lua.LValue, len(args))
		for i, arg := range args {
			in[i] = toLua(L, arg)
		}
		out, err := call(L, lfn, in...)
		if err != nil {
			return nil, err
		}
		var first lua.LValue = lua.LNil
		if len(out) > 0 {
			first = out[0]
		}
		return fromLua(first, ret)
	}
}
