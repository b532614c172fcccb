package transform

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

// Lua transforms entries with a user script. The script MUST define
//
//	function transform(level, message, payload, timestamp)
//
// returning the new message and payload (a table or nil).
// `local json = require("json")` is available inside the script.
type Lua struct {
	scriptPath string
	pool       *sync.Pool
}

// NewLua loads the script once to surface syntax errors early.
func NewLua(scriptPath string) (*Lua, error) {
	L, err := newLuaState(scriptPath)
	if err != nil {
		return nil, err
	}

	lt := &Lua{scriptPath: scriptPath}
	lt.pool = &sync.Pool{
		// holds either a *lua.LState or the error that kept one from loading,
		// e.g. a script edited into something invalid after startup
		New: func() any {
			L, err := newLuaState(scriptPath)
			if err != nil {
				return err
			}
			return L
		},
	}
	lt.pool.Put(L)

	return lt, nil
}

func newLuaState(scriptPath string) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	// os and io stay closed
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.LoadLibName, lua.OpenPackage},
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}

	luajson.Preload(L)

	if err := L.DoFile(scriptPath); err != nil {
		L.Close()
		return nil, fmt.Errorf("cannot load transformer script %s: %w", scriptPath, err)
	}

	if L.GetGlobal("transform").Type() != lua.LTFunction {
		L.Close()
		return nil, fmt.Errorf("transformer script %s does not define a transform function", scriptPath)
	}

	return L, nil
}

func (lt *Lua) Transform(entry Entry) (Result, error) {
	var L *lua.LState
	switch v := lt.pool.Get().(type) {
	case *lua.LState:
		L = v
	case error:
		return Result{}, v
	}
	defer lt.pool.Put(L)

	payload, err := toLuaValue(L, entry.Payload)
	if err != nil {
		return Result{}, err
	}

	ts := entry.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	err = L.CallByParam(lua.P{
		Fn:      L.GetGlobal("transform"),
		NRet:    2,
		Protect: true,
	}, lua.LString(entry.Level), lua.LString(entry.Message), payload, lua.LString(ts.UTC().Format(time.RFC3339Nano)))
	if err != nil {
		return Result{}, fmt.Errorf("lua script error: %w", err)
	}

	luaPayload := L.Get(-1)
	luaMessage := L.Get(-2)
	L.Pop(2)

	message := entry.Message
	if luaMessage != lua.LNil {
		message = luaMessage.String()
	}

	out, err := fromLuaValue(luaPayload)
	if err != nil {
		return Result{}, err
	}

	return Result{Message: message, Payload: out}, nil
}

func toLuaValue(L *lua.LState, v any) (lua.LValue, error) {
	if v == nil {
		return lua.LNil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("cannot encode payload for lua: %w", err)
	}

	lv, err := luajson.Decode(L, data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode payload into lua: %w", err)
	}
	return lv, nil
}

func fromLuaValue(lv lua.LValue) (any, error) {
	if lv == lua.LNil {
		return nil, nil
	}

	data, err := luajson.Encode(lv)
	if err != nil {
		return nil, fmt.Errorf("cannot encode lua payload: %w", err)
	}

	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cannot decode lua payload: %w", err)
	}
	return out, nil
}
