//go:build !no_automation

// Package automation runs user Lua scripts against the controller. Each
// enabled script gets its own VM; event handlers registered through the
// matter module run on that VM's goroutine.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"matter-go-home/internal/controller"
	"matter-go-home/internal/filter"
)

const (
	runTimeout      = 5 * time.Second
	commandQueueLen = 64
)

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

type handlerKind int

const (
	onEvent handlerKind = iota
	onWriteResult
	onLinkState
)

// luaEventHandler is a registered Lua callback.
type luaEventHandler struct {
	kind   handlerKind
	filter *filter.Filter // onEvent only; nil matches every event
	fn     *lua.LFunction
}

// scriptVM is a running Lua VM for a single script.
type scriptVM struct {
	id       string
	commands chan func(*lua.LState) // serializes Lua access
	handlers []luaEventHandler
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.Mutex // protects handlers

	// logf replaces the logger for one-shot runs.
	logf func(level, msg string)
}

// post queues fn on the VM goroutine. It reports false when the VM is
// stopped or its queue is full.
func (vm *scriptVM) post(fn func(*lua.LState)) bool {
	select {
	case <-vm.ctx.Done():
		return false
	default:
	}
	select {
	case vm.commands <- fn:
		return true
	default:
		return false
	}
}

// Engine manages Lua VMs and dispatches bus events to scripts.
type Engine struct {
	ctrl    *controller.Controller
	manager *Manager
	logger  *slog.Logger

	mu    sync.Mutex
	vms   map[string]*scriptVM // script ID -> running VM
	unsub func()
}

// NewEngine creates a new automation engine.
func NewEngine(ctrl *controller.Controller, mgr *Manager, logger *slog.Logger) *Engine {
	return &Engine{
		ctrl:    ctrl,
		manager: mgr,
		logger:  logger.With("component", "automation"),
		vms:     make(map[string]*scriptVM),
	}
}

// Manager returns the script store.
func (e *Engine) Manager() *Manager { return e.manager }

// Start subscribes to the event bus and loads all enabled scripts.
func (e *Engine) Start() {
	e.unsub = e.ctrl.Events().OnAll(e.dispatchEvent)

	scripts, err := e.manager.List()
	if err != nil {
		e.logger.Error("load scripts", "err", err)
		return
	}

	for _, s := range scripts {
		if !s.Meta.Enabled {
			continue
		}
		if err := e.startScript(s); err != nil {
			e.logger.Error("start script", "id", s.ID, "err", err)
		}
	}

	e.logger.Info("automation engine started", "scripts", e.Running())
}

// Stop cancels all VMs and unsubscribes from the event bus.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, vm := range e.vms {
		vm.cancel()
		delete(e.vms, id)
	}
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
	e.logger.Info("automation engine stopped")
}

// Running returns the number of running script VMs.
func (e *Engine) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.vms)
}

// IsRunning reports whether the script has a live VM.
func (e *Engine) IsRunning(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vms[id]
	return ok
}

// ReloadScript stops the old VM (if any) and starts a new one when the
// script is enabled.
func (e *Engine) ReloadScript(id string) error {
	e.stopScript(id)

	s, err := e.manager.Get(id)
	if err != nil {
		return fmt.Errorf("get script: %w", err)
	}
	if !s.Meta.Enabled {
		return nil
	}
	return e.startScript(s)
}

// StopScript stops a running script VM.
func (e *Engine) StopScript(id string) {
	e.stopScript(id)
}

// RunScript executes a stored script once in a throwaway VM.
func (e *Engine) RunScript(id string) *RunResult {
	start := time.Now()
	s, err := e.manager.Get(id)
	if err != nil {
		return &RunResult{OK: false, Error: err.Error(), Duration: time.Since(start).String()}
	}
	return e.RunLuaCode(s.LuaCode)
}

// RunLuaCode executes code in a throwaway VM and captures its log output.
// Handlers registered with matter.on are then called once with a synthetic
// event so their bodies run too. Writes issued by the code are real.
func (e *Engine) RunLuaCode(code string) *RunResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	var (
		logs  []string
		logMu sync.Mutex
	)
	vm := &scriptVM{
		id:       "<run>",
		commands: make(chan func(*lua.LState), commandQueueLen),
		ctx:      ctx,
		cancel:   cancel,
		logf: func(level, msg string) {
			logMu.Lock()
			defer logMu.Unlock()
			if level != "info" {
				msg = "[" + level + "] " + msg
			}
			logs = append(logs, msg)
		},
	}
	L := e.newState(vm)
	defer L.Close()
	L.SetContext(ctx)

	result := func(err error) *RunResult {
		logMu.Lock()
		defer logMu.Unlock()
		r := &RunResult{OK: err == nil, Logs: append([]string(nil), logs...), Duration: time.Since(start).String()}
		if err != nil {
			r.Error = runError(err)
			e.logger.Warn("script run failed", "err", r.Error)
		}
		return r
	}

	if err := L.DoString(code); err != nil {
		return result(err)
	}

	vm.mu.Lock()
	handlers := append([]luaEventHandler(nil), vm.handlers...)
	vm.mu.Unlock()

	for _, h := range handlers {
		if h.kind != onEvent {
			continue
		}
		ev := L.NewTable()
		ev.RawSetString("type", lua.LString(controller.EventMatterEvent))
		ev.RawSetString("synthetic", lua.LTrue)
		ev.RawSetString("fields", L.NewTable())
		if err := L.CallByParam(lua.P{Fn: h.fn, NRet: 0, Protect: true}, ev); err != nil {
			return result(err)
		}
	}

	// Drain callbacks (matter.after, write results) queued while running.
	for drained := false; !drained; {
		select {
		case fn := <-vm.commands:
			fn(L)
		default:
			drained = true
		}
	}
	return result(nil)
}

func runError(err error) string {
	s := err.Error()
	if strings.Contains(s, context.DeadlineExceeded.Error()) {
		return fmt.Sprintf("timeout (%s)", runTimeout)
	}
	return s
}

func (e *Engine) stopScript(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if vm, ok := e.vms[id]; ok {
		vm.cancel()
		delete(e.vms, id)
		e.logger.Info("script stopped", "id", id)
	}
}

// newState creates a sandboxed Lua state with the script modules.
func (e *Engine) newState(vm *scriptVM) *lua.LState {
	L := lua.NewState()
	for _, name := range []string{"os", "io", "loadfile", "dofile", "require", "load", "debug", "package"} {
		L.SetGlobal(name, lua.LNil)
	}
	registerMatterModule(L, vm, e)
	registerSystemModule(L, vm, e)
	return L
}

func (e *Engine) startScript(s *Script) error {
	ctx, cancel := context.WithCancel(e.ctrl.Context())
	vm := &scriptVM{
		id:       s.ID,
		commands: make(chan func(*lua.LState), commandQueueLen),
		ctx:      ctx,
		cancel:   cancel,
	}
	L := e.newState(vm)

	// Top-level code registers handlers.
	if err := L.DoString(s.LuaCode); err != nil {
		cancel()
		L.Close()
		return fmt.Errorf("execute script %s: %w", s.ID, err)
	}

	e.mu.Lock()
	if old, ok := e.vms[s.ID]; ok {
		old.cancel()
	}
	e.vms[s.ID] = vm
	e.mu.Unlock()

	go func() {
		defer L.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case fn := <-vm.commands:
				fn(L)
			}
		}
	}()

	e.logger.Info("script started", "id", s.ID, "name", s.Meta.Name)
	return nil
}

// dispatchEvent routes a bus event to all matching Lua handlers.
func (e *Engine) dispatchEvent(ev controller.Event) {
	kind, ok := kindOf(ev.Type)
	if !ok {
		return
	}

	e.mu.Lock()
	vms := make([]*scriptVM, 0, len(e.vms))
	for _, vm := range e.vms {
		vms = append(vms, vm)
	}
	e.mu.Unlock()

	for _, vm := range vms {
		vm.mu.Lock()
		handlers := append([]luaEventHandler(nil), vm.handlers...)
		vm.mu.Unlock()

		for _, h := range handlers {
			if !matchesHandler(h, kind, ev) {
				continue
			}
			fn := h.fn
			if !vm.post(func(L *lua.LState) { e.callHandler(L, vm, fn, ev) }) {
				e.logger.Warn("script busy, event dropped", "id", vm.id, "type", ev.Type)
			}
		}
	}
}

func kindOf(eventType string) (handlerKind, bool) {
	switch eventType {
	case controller.EventMatterEvent:
		return onEvent, true
	case controller.EventWriteResult:
		return onWriteResult, true
	case controller.EventLinkState:
		return onLinkState, true
	}
	return 0, false
}

func matchesHandler(h luaEventHandler, kind handlerKind, ev controller.Event) bool {
	if h.kind != kind {
		return false
	}
	if kind != onEvent || h.filter == nil {
		return true
	}
	me, ok := ev.Data.(controller.MatterEvent)
	return ok && h.filter.Match(me.Record)
}

func (e *Engine) callHandler(L *lua.LState, vm *scriptVM, fn *lua.LFunction, ev controller.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("lua handler panic", "id", vm.id, "err", r)
		}
	}()

	if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}, eventTable(L, ev)); err != nil {
		e.logger.Error("lua handler error", "id", vm.id, "err", err)
	}
}

// eventTable converts a bus event into the table handlers receive.
func eventTable(L *lua.LState, ev controller.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("type", lua.LString(ev.Type))

	switch d := ev.Data.(type) {
	case controller.MatterEvent:
		rec := d.Record
		t.RawSetString("seq", lua.LNumber(d.Seq))
		t.RawSetString("node", lua.LString(controller.FormatNodeID(rec.Node)))
		t.RawSetString("endpoint", lua.LNumber(rec.Endpoint))
		t.RawSetString("cluster", lua.LString(rec.Cluster.Name))
		t.RawSetString("event", lua.LString(rec.Def.Name))
		t.RawSetString("number", lua.LNumber(rec.Number))
		t.RawSetString("priority", lua.LString(rec.Priority.String()))
		t.RawSetString("timestamp", lua.LNumber(rec.Timestamp.Unix()))
		t.RawSetString("fields", goToLua(L, rec.Plain()))
	case controller.WriteResult:
		t.RawSetString("request_id", lua.LString(d.RequestID))
		t.RawSetString("node", lua.LString(d.Node))
		t.RawSetString("endpoint", lua.LNumber(d.Endpoint))
		t.RawSetString("cluster", lua.LString(d.Cluster))
		t.RawSetString("attribute", lua.LString(d.Attribute))
		t.RawSetString("status", lua.LString(d.Status.String()))
		t.RawSetString("ok", lua.LBool(d.OK()))
		if d.Error != "" {
			t.RawSetString("error", lua.LString(d.Error))
		}
	default:
		t.RawSetString("value", goToLua(L, fmt.Sprint(d)))
	}
	return t
}

// goToLua converts a Go value to a Lua value.
func goToLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case map[string]any:
		t := L.NewTable()
		for k, vv := range val {
			t.RawSetString(k, goToLua(L, vv))
		}
		return t
	case []any:
		t := L.NewTable()
		for i, vv := range val {
			t.RawSetInt(i+1, goToLua(L, vv))
		}
		return t
	default:
		return lua.LString(fmt.Sprintf("%v", val))
	}
}

// luaToGo converts a Lua value into the loosely typed form the write
// dispatch accepts. Tables with a sequence part become lists, other
// non-empty tables become maps.
func luaToGo(v lua.LValue) any {
	switch val := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		return float64(val)
	case lua.LString:
		return string(val)
	case *lua.LTable:
		if n := val.MaxN(); n > 0 {
			out := make([]any, 0, n)
			for i := 1; i <= n; i++ {
				out = append(out, luaToGo(val.RawGetInt(i)))
			}
			return out
		}
		m := make(map[string]any)
		val.ForEach(func(k, vv lua.LValue) {
			m[k.String()] = luaToGo(vv)
		})
		if len(m) == 0 {
			return []any{}
		}
		return m
	default:
		return val.String()
	}
}
