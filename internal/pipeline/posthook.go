// Copyright 2026 The switchAILocal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// hookEntry is one shortlist row as seen across the Go/Lua boundary.
type hookEntry struct {
	XPath string
	Tag   string
	Role  string
	Text  string
	Score float64
}

// postRankHook runs an optional user-supplied Lua script against the
// ranked shortlist before strategy selection, letting a deployment
// reorder or drop entries (SPEC_FULL.md §4.7 domain stack). Grounded on
// the teacher's plugin.LuaEngine (internal/plugin/lua_engine.go): a
// script is compiled once into a *lua.FunctionProto, then re-executed
// from a pooled *lua.LState per call so concurrent queries never share
// interpreter state.
type postRankHook struct {
	proto *lua.FunctionProto
	pool  sync.Pool
}

func newSafeLuaState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	return L
}

// newPostRankHook compiles script, or returns (nil, nil) for an empty
// script (the hook is disabled by default per SPEC_FULL.md §4.7).
func newPostRankHook(script string) (*postRankHook, error) {
	if script == "" {
		return nil, nil
	}

	compiler := newSafeLuaState()
	defer compiler.Close()
	fn, err := compiler.LoadString(script)
	if err != nil {
		return nil, fmt.Errorf("pipeline: compile post-rank hook: %w", err)
	}

	h := &postRankHook{proto: fn.Proto}
	h.pool.New = func() interface{} { return newSafeLuaState() }
	return h, nil
}

// Run passes entries (already rank-ordered) through the script's
// `post_rank(entries)` function — defined either as a global or as a
// field on the table the chunk itself returns, mirroring the teacher's
// "plugin table, else global" lookup. The function must return an array
// of 1-based indices into entries naming which rows to keep, and in what
// order. Any compile/runtime failure, or a script that defines no
// post_rank function, leaves entries unchanged — a misbehaving hook
// degrades to a no-op rather than failing the query.
func (h *postRankHook) Run(ctx context.Context, entries []hookEntry) []hookEntry {
	if h == nil || len(entries) == 0 {
		return entries
	}

	L := h.pool.Get().(*lua.LState)
	defer func() {
		L.SetTop(0)
		h.pool.Put(L)
	}()
	L.SetContext(ctx)

	fn := L.NewFunctionFromProto(h.proto)
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		return entries
	}
	chunkResult := L.Get(-1)
	L.Pop(1)

	var hookFn lua.LValue = lua.LNil
	if tbl, ok := chunkResult.(*lua.LTable); ok {
		hookFn = L.GetField(tbl, "post_rank")
	}
	if hookFn == lua.LNil {
		hookFn = L.GetGlobal("post_rank")
	}
	if hookFn.Type() != lua.LTFunction {
		return entries
	}

	luaEntries := L.NewTable()
	for i, e := range entries {
		row := L.NewTable()
		L.SetField(row, "xpath", lua.LString(e.XPath))
		L.SetField(row, "tag", lua.LString(e.Tag))
		L.SetField(row, "role", lua.LString(e.Role))
		L.SetField(row, "text", lua.LString(e.Text))
		L.SetField(row, "score", lua.LNumber(e.Score))
		luaEntries.RawSetInt(i+1, row)
	}

	L.Push(hookFn)
	L.Push(luaEntries)
	if err := L.PCall(1, 1, nil); err != nil {
		return entries
	}
	result := L.Get(-1)
	L.Pop(1)

	tbl, ok := result.(*lua.LTable)
	if !ok {
		return entries
	}

	var out []hookEntry
	for i := 1; i <= tbl.Len(); i++ {
		v := tbl.RawGetInt(i)
		n, ok := v.(lua.LNumber)
		if !ok {
			continue
		}
		idx := int(n) - 1
		if idx >= 0 && idx < len(entries) {
			out = append(out, entries[idx])
		}
	}
	if len(out) == 0 {
		return entries
	}
	return out
}
