package action

import (
	"context"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

const defaultLuaTimeout = 200 * time.Millisecond

func init() { Register("lua", buildLua) }

// buildLua compiles the script once; every call runs it in a fresh state
// with only the base, string, table and math libraries opened.
func buildLua(p Params) (Func, []string, error) {
	script, err := p.String("script")
	if err != nil {
		return nil, nil, err
	}
	timeout := defaultLuaTimeout
	if p.Has("timeout_ms") {
		ms, err := p.Int("timeout_ms")
		if err != nil {
			return nil, nil, err
		}
		if ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
	}
	// An expression is evaluated as such; anything else runs as a chunk.
	chunk, err := parse.Parse(strings.NewReader("return ("+script+"\n)"), "<lua>")
	if err != nil {
		if chunk, err = parse.Parse(strings.NewReader(script), "<lua>"); err != nil {
			return nil, nil, paramError("lua: %v", err)
		}
	}
	proto, err := lua.Compile(chunk, "<lua>")
	if err != nil {
		return nil, nil, paramError("lua: %v", err)
	}
	return func(v any, env Env) (any, error) {
		L := newLuaState()
		defer L.Close()
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		L.SetContext(ctx)

		L.SetGlobal("value", lua.LString(asString(v)))
		L.SetGlobal("original", lua.LString(env.Original()))
		L.SetGlobal("field", L.NewFunction(func(L *lua.LState) int {
			fv, ok := env.Lookup(L.CheckString(1))
			if !ok {
				L.Push(lua.LNil)
				return 1
			}
			L.Push(lua.LString(asString(fv)))
			return 1
		}))

		L.Push(L.NewFunctionFromProto(proto))
		if err := L.PCall(0, 1, nil); err != nil {
			return nil, paramError("lua: %v", err)
		}
		ret := L.Get(-1)
		L.Pop(1)
		return fromLValue(ret)
	}, nil, nil
}

func newLuaState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.StringLibName, lua.OpenString},
		{lua.TabLibName, lua.OpenTable},
		{lua.MathLibName, lua.OpenMath},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	return L
}

func fromLValue(v lua.LValue) (any, error) {
	switch v.Type() {
	case lua.LTString:
		return v.String(), nil
	case lua.LTNumber:
		return float64(v.(lua.LNumber)), nil
	case lua.LTBool:
		return lua.LVAsBool(v), nil
	}
	return nil, paramError("lua returned %s, want string, number or boolean", v.Type())
}
