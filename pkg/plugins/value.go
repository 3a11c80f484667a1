package plugins

import (
	"fmt"
	"reflect"
)

// ValueType is the declared type of an IPC parameter or return value.
type ValueType int

const (
	ValueVoid ValueType = iota
	ValueBool
	ValueInt
	ValueInt64
	ValueString
	// ValueAny accepts any value, including pointers.
	ValueAny
	ValueError
)

func (v ValueType) String() string {
	switch v {
	case ValueVoid:
		return "void"
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueInt64:
		return "int64"
	case ValueString:
		return "string"
	case ValueAny:
		return "any"
	case ValueError:
		return "error"
	default:
		return fmt.Sprintf("ValueType(%d)", int(v))
	}
}

// accepts reports whether v matches the declared type. nil is accepted
// for ValueAny and ValueError.
func (v ValueType) accepts(val any) bool {
	switch v {
	case ValueBool:
		_, ok := val.(bool)
		return ok
	case ValueInt:
		_, ok := val.(int)
		return ok
	case ValueInt64:
		_, ok := val.(int64)
		return ok
	case ValueString:
		_, ok := val.(string)
		return ok
	case ValueAny:
		return true
	case ValueError:
		if val == nil {
			return true
		}
		_, ok := val.(error)
		return ok
	}
	return false
}

func (v ValueType) reflectType() reflect.Type {
	switch v {
	case ValueBool:
		return reflect.TypeOf(false)
	case ValueInt:
		return reflect.TypeOf(0)
	case ValueInt64:
		return reflect.TypeOf(int64(0))
	case ValueString:
		return reflect.TypeOf("")
	case ValueError:
		return reflect.TypeOf((*error)(nil)).Elem()
	}
	return nil
}

// MarshalFunc invokes fn with args, checked against params, and returns its
// result as declared by ret.
type MarshalFunc func(fn any, params []ValueType, ret ValueType, args []any) (any, error)

// ReflectMarshal calls fn through reflection after checking the argument
// count and types against params. fn returns nothing for ValueVoid and a
// single value otherwise.
func ReflectMarshal(fn any, params []ValueType, ret ValueType, args []any) (any, error) {
	if len(args) != len(params) {
		return nil, fmt.Errorf("%w: want %d arguments, got %d", ErrIPCArgs, len(params), len(args))
	}
	for i, param := range params {
		if !param.accepts(args[i]) {
			return nil, fmt.Errorf("%w: argument %d is %T, want %s", ErrIPCArgs, i, args[i], param)
		}
	}

	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: command is %T, not a function", ErrIPCArgs, fn)
	}
	ft := fv.Type()
	if ft.NumIn() != len(params) {
		return nil, fmt.Errorf("%w: function takes %d arguments, declared %d", ErrIPCArgs, ft.NumIn(), len(params))
	}

	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(ft.In(i))
			continue
		}
		v := reflect.ValueOf(arg)
		if !v.Type().AssignableTo(ft.In(i)) {
			return nil, fmt.Errorf("%w: argument %d is %T, function wants %s", ErrIPCArgs, i, arg, ft.In(i))
		}
		in[i] = v
	}

	out := fv.Call(in)
	if ret == ValueVoid {
		return nil, nil
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: function returns nothing, declared %s", ErrIPCArgs, ret)
	}
	if rt := ret.reflectType(); rt != nil && !out[0].Type().AssignableTo(rt) {
		return nil, fmt.Errorf("%w: function returns %s, declared %s", ErrIPCArgs, out[0].Type(), ret)
	}
	return out[0].Interface(), nil
}
