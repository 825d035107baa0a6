//go:build !no_automation

package automation

import (
	"context"
	"time"

	lua "github.com/yuin/gopher-lua"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/filter"
)

const (
	maxHandlersPerScript = 100
	luaWriteTimeout      = 5 * time.Second
)

// registerMatterModule registers the `matter` global table in a Lua state.
func registerMatterModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()
	fns := map[string]lua.LGFunction{
		"on":        func(L *lua.LState) int { return matterOn(L, vm) },
		"on_result": func(L *lua.LState) int { return matterOnKind(L, vm, onWriteResult) },
		"on_link":   func(L *lua.LState) int { return matterOnKind(L, vm, onLinkState) },
		"write":     func(L *lua.LState) int { return matterWrite(L, vm, e) },
		"writable":  func(L *lua.LState) int { return matterWritable(L, e) },
		"nodes":     func(L *lua.LState) int { return matterNodes(L, e) },
		"after":     func(L *lua.LState) int { return matterAfter(L, vm, e) },
		"log":       func(L *lua.LState) int { return matterLog(L, vm, e) },
	}
	for name, fn := range fns {
		mod.RawSetString(name, L.NewFunction(fn))
	}
	L.SetGlobal("matter", mod)
}

func addHandler(L *lua.LState, vm *scriptVM, h luaEventHandler) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if len(vm.handlers) >= maxHandlersPerScript {
		L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
		return
	}
	vm.handlers = append(vm.handlers, h)
}

// matter.on([filter,] callback)
func matterOn(L *lua.LState, vm *scriptVM) int {
	var (
		src string
		fn  *lua.LFunction
	)
	if L.GetTop() >= 2 {
		src = L.CheckString(1)
		fn = L.CheckFunction(2)
	} else {
		fn = L.CheckFunction(1)
	}

	f, err := filter.Compile(src)
	if err != nil {
		L.ArgError(1, err.Error())
		return 0
	}
	addHandler(L, vm, luaEventHandler{kind: onEvent, filter: f, fn: fn})
	return 0
}

// matter.on_result(callback), matter.on_link(callback)
func matterOnKind(L *lua.LState, vm *scriptVM, kind handlerKind) int {
	addHandler(L, vm, luaEventHandler{kind: kind, fn: L.CheckFunction(1)})
	return 0
}

// matter.write(node, endpoint, cluster, attribute, value [, opts])
//
// opts is either a timed-write timeout in milliseconds or a table with
// timed_ms and on_result. Returns the request ID, or nil and an error
// message when the write could not be submitted.
func matterWrite(L *lua.LState, vm *scriptVM, e *Engine) int {
	node := checkNodeID(L, 1)
	ep := L.CheckInt(2)
	if ep < 0 || ep > 0xFFFF {
		L.ArgError(2, "endpoint must be 0-65535")
		return 0
	}
	cluster := L.CheckString(3)
	attr := L.CheckString(4)
	val := luaToGo(L.Get(5))

	var (
		opts     []dispatch.InvokeOption
		onResult *lua.LFunction
	)
	switch o := L.Get(6).(type) {
	case lua.LNumber:
		opts = append(opts, dispatch.WithTimedTimeout(time.Duration(float64(o)*float64(time.Millisecond))))
	case *lua.LTable:
		if ms, ok := o.RawGetString("timed_ms").(lua.LNumber); ok {
			opts = append(opts, dispatch.WithTimedTimeout(time.Duration(float64(ms)*float64(time.Millisecond))))
		}
		onResult, _ = o.RawGetString("on_result").(*lua.LFunction)
	}

	var cb dispatch.Callback
	if onResult != nil {
		cb = func(res dispatch.Result) {
			posted := vm.post(func(L *lua.LState) {
				t := L.NewTable()
				t.RawSetString("status", lua.LString(res.Status.String()))
				t.RawSetString("ok", lua.LBool(res.OK()))
				if res.Err != nil {
					t.RawSetString("error", lua.LString(res.Err.Error()))
				}
				if err := L.CallByParam(lua.P{Fn: onResult, NRet: 0, Protect: true}, t); err != nil {
					e.logger.Error("write result callback error", "id", vm.id, "err", err)
				}
			})
			if !posted {
				e.logger.Warn("write result dropped", "id", vm.id)
			}
		}
	}

	ctx, cancel := context.WithTimeout(vm.ctx, luaWriteTimeout)
	defer cancel()
	id, err := e.ctrl.WriteAttribute(ctx, node, uint16(ep), cluster, attr, dispatch.Single(val), cb, opts...)
	if err != nil {
		e.logger.Warn("script write rejected", "id", vm.id, "attr", cluster+"."+attr, "err", err)
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LString(id))
	return 1
}

// checkNodeID accepts a node ID as a number or as a string in any form
// controller.ParseNodeID understands.
func checkNodeID(L *lua.LState, n int) uint64 {
	switch v := L.Get(n).(type) {
	case lua.LNumber:
		if v < 0 {
			L.ArgError(n, "node id must not be negative")
		}
		return uint64(v)
	case lua.LString:
		id, err := controller.ParseNodeID(string(v))
		if err != nil {
			L.ArgError(n, err.Error())
		}
		return id
	}
	L.TypeError(n, lua.LTString)
	return 0
}

// matter.writable(cluster) returns the writable attribute names.
func matterWritable(L *lua.LState, e *Engine) int {
	ds, err := e.ctrl.Writes().Writable(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	t := L.NewTable()
	for i, d := range ds {
		t.RawSetInt(i+1, lua.LString(d.Attribute))
	}
	L.Push(t)
	return 1
}

// matter.nodes() returns a table of known nodes.
func matterNodes(L *lua.LState, e *Engine) int {
	nodes, err := e.ctrl.Nodes()
	if err != nil {
		L.Push(L.NewTable())
		return 1
	}

	tbl := L.NewTable()
	for i, n := range nodes {
		d := L.NewTable()
		d.RawSetString("id", lua.LString(controller.FormatNodeID(n.ID)))
		d.RawSetString("label", lua.LString(n.Label))
		eps := L.NewTable()
		for j, ep := range n.Endpoints {
			eps.RawSetInt(j+1, lua.LNumber(ep))
		}
		d.RawSetString("endpoints", eps)
		d.RawSetString("events", lua.LNumber(n.EventCount))
		d.RawSetString("last_seen", lua.LNumber(n.LastSeen.Unix()))
		tbl.RawSetInt(i+1, d)
	}
	L.Push(tbl)
	return 1
}

// matter.after(seconds, callback) runs callback later on the script VM.
// In a one-shot run the callback is queued right away.
func matterAfter(L *lua.LState, vm *scriptVM, e *Engine) int {
	seconds := L.CheckNumber(1)
	fn := L.CheckFunction(2)

	call := func(L *lua.LState) {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
			e.logger.Error("after callback error", "id", vm.id, "err", err)
		}
	}
	if vm.logf != nil {
		vm.post(call)
		return 0
	}

	go func() {
		timer := time.NewTimer(time.Duration(float64(seconds) * float64(time.Second)))
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-vm.ctx.Done():
			return
		}
		if !vm.post(call) {
			e.logger.Warn("after: command channel full", "id", vm.id)
		}
	}()
	return 0
}

// matter.log(msg)
func matterLog(L *lua.LState, vm *scriptVM, e *Engine) int {
	scriptLog(vm, e, "info", L.CheckString(1))
	return 0
}

func scriptLog(vm *scriptVM, e *Engine, level, msg string) {
	if vm.logf != nil {
		vm.logf(level, msg)
		return
	}
	switch level {
	case "debug":
		e.logger.Debug("script log", "id", vm.id, "msg", msg)
	case "warn":
		e.logger.Warn("script log", "id", vm.id, "msg", msg)
	case "error":
		e.logger.Error("script log", "id", vm.id, "msg", msg)
	default:
		e.logger.Info("script log", "id", vm.id, "msg", msg)
	}
}
