// Package filter compiles event filter expressions such as
//
//	Cluster == "BooleanState" && Fields.stateValue == true
//	Node == 66 && Priority == "critical"
//
// used by the WebSocket stream, MQTT publishing, journal queries and Lua
// subscriptions.
package filter

import (
	"fmt"
	"strings"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"

	"matter-go-home/internal/event"
)

// Env is what a filter expression sees.
type Env struct {
	Node      uint64
	Endpoint  int
	Cluster   string
	ClusterID int
	Event     string
	EventID   int
	Priority  string
	Number    uint64
	Fields    map[string]any
}

// EnvFor builds the expression environment for a record.
func EnvFor(rec *event.Record) Env {
	env := Env{
		Node:     rec.Node,
		Endpoint: int(rec.Endpoint),
		Priority: rec.Priority.String(),
		Number:   rec.Number,
		Fields:   rec.Plain(),
	}
	if rec.Cluster != nil {
		env.Cluster = rec.Cluster.Name
		env.ClusterID = int(rec.Cluster.ID)
	}
	if rec.Def != nil {
		env.Event = rec.Def.Name
		env.EventID = int(rec.Def.ID)
	}
	return env
}

// Filter is a compiled expression. A nil *Filter matches everything.
type Filter struct {
	src  string
	prog *vm.Program
}

// Compile parses src. An empty or blank source yields a nil filter.
func Compile(src string) (*Filter, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	prog, err := expr.Compile(src, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("filter compilation: %w", err)
	}
	return &Filter{src: src, prog: prog}, nil
}

// MustCompile is Compile for expressions known to be valid.
func MustCompile(src string) *Filter {
	f, err := Compile(src)
	if err != nil {
		panic(err)
	}
	return f
}

// Match reports whether rec satisfies the filter. Runtime errors, such as
// comparing a missing field, count as no match.
func (f *Filter) Match(rec *event.Record) bool {
	if f == nil {
		return true
	}
	ok, err := f.Eval(EnvFor(rec))
	return err == nil && ok
}

// Eval runs the filter against env.
func (f *Filter) Eval(env Env) (bool, error) {
	if f == nil {
		return true, nil
	}
	out, err := expr.Run(f.prog, env)
	if err != nil {
		return false, err
	}
	b, _ := out.(bool)
	return b, nil
}

func (f *Filter) String() string {
	if f == nil {
		return ""
	}
	return f.src
}
