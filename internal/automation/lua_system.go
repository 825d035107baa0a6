//go:build !no_automation

package automation

import (
	"sort"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// clock is the time source for the system module.
var clock = time.Now

// datetimeComponents maps system.datetime component names to accessors.
var datetimeComponents = map[string]func(time.Time) lua.LValue{
	"hour":      func(t time.Time) lua.LValue { return lua.LNumber(t.Hour()) },
	"minute":    func(t time.Time) lua.LValue { return lua.LNumber(t.Minute()) },
	"second":    func(t time.Time) lua.LValue { return lua.LNumber(t.Second()) },
	"weekday":   func(t time.Time) lua.LValue { return lua.LNumber(t.Weekday()) },
	"day":       func(t time.Time) lua.LValue { return lua.LNumber(t.Day()) },
	"month":     func(t time.Time) lua.LValue { return lua.LNumber(t.Month()) },
	"year":      func(t time.Time) lua.LValue { return lua.LNumber(t.Year()) },
	"timestamp": func(t time.Time) lua.LValue { return lua.LNumber(t.Unix()) },
	// Matter epoch-us values are microseconds since the Unix epoch.
	"epoch_us": func(t time.Time) lua.LValue { return lua.LNumber(t.UnixMicro()) },
	"time_str": func(t time.Time) lua.LValue { return lua.LString(t.Format(time.TimeOnly)) },
	"date_str": func(t time.Time) lua.LValue { return lua.LString(t.Format(time.DateOnly)) },
	"iso":      func(t time.Time) lua.LValue { return lua.LString(t.Format(time.RFC3339)) },
}

// registerSystemModule registers the `system` global table in a Lua state.
func registerSystemModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()

	mod.RawSetString("datetime", L.NewFunction(systemDatetime))
	mod.RawSetString("time_between", L.NewFunction(systemTimeBetween))
	mod.RawSetString("since", L.NewFunction(systemSince))
	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		level := L.CheckString(1)
		msg := L.CheckString(2)
		scriptLog(vm, e, level, msg)
		return 0
	}))

	L.SetGlobal("system", mod)
}

// system.datetime(component)
func systemDatetime(L *lua.LState) int {
	component := L.CheckString(1)
	get, ok := datetimeComponents[component]
	if !ok {
		L.ArgError(1, "unknown component: "+component+" (one of "+componentNames()+")")
		return 0
	}
	L.Push(get(clock()))
	return 1
}

func componentNames() string {
	names := make([]string, 0, len(datetimeComponents))
	for n := range datetimeComponents {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// system.since(unix_seconds) returns the seconds elapsed since an event
// table's timestamp.
func systemSince(L *lua.LState) int {
	ts := L.CheckNumber(1)
	then := time.Unix(int64(ts), 0)
	L.Push(lua.LNumber(clock().Sub(then).Seconds()))
	return 1
}

// system.time_between(from_hour, to_hour) reports whether the current hour
// is in [from, to). Ranges may wrap midnight, e.g. 22 to 6.
func systemTimeBetween(L *lua.LState) int {
	from := L.CheckInt(1)
	to := L.CheckInt(2)
	L.Push(lua.LBool(hourBetween(clock().Hour(), from, to)))
	return 1
}

func hourBetween(hour, from, to int) bool {
	if from <= to {
		return hour >= from && hour < to
	}
	return hour >= from || hour < to
}
