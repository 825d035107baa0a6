// Package dispatch maps (cluster, attribute) names to write descriptors so
// that generic callers (HTTP, MQTT, Lua, CLI) can perform typed attribute
// writes from an untyped argument bag.
package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"matter-go-home/internal/schema"
	"matter-go-home/internal/value"
)

// ValueParam is the parameter name used by attribute write descriptors.
const ValueParam = "value"

// Args is the generic argument bag: parameter name to dynamically typed value.
type Args map[string]any

// Single returns an argument bag holding only the "value" parameter.
func Single(v any) Args {
	return Args{ValueParam: v}
}

var valueType = reflect.TypeOf(value.Value{})

// ParamSpec describes one parameter of a write.
type ParamSpec struct {
	Name string `json:"name"`
	// Ref is the declared schema type.
	Ref schema.TypeRef `json:"type"`
	// GoType is what the typed write method receives: the canonical scalar
	// type, or value.Value for nullable, struct and list parameters.
	GoType reflect.Type `json:"-"`
}

// Describe returns the declared type in words, e.g. "unsigned 16-bit integer".
func (p ParamSpec) Describe() string {
	return p.Ref.Describe()
}

// goTypeFor returns the Go type carried for a declared type.
func goTypeFor(ref schema.TypeRef) reflect.Type {
	if ref.Nullable {
		return valueType
	}
	if t := ref.Type.GoType(); t != nil {
		return t
	}
	return valueType
}

type invokeFunc func(ctx context.Context, target any, vals []any, timeout time.Duration, cb Callback) error

// Descriptor describes how to write one attribute. Descriptors are built
// once and never modified.
type Descriptor struct {
	Cluster     string      `json:"cluster"`
	Attribute   string      `json:"attribute"`
	ClusterID   uint32      `json:"cluster_id"`
	AttributeID uint32      `json:"attribute_id"`
	Params      []ParamSpec `json:"params"`
	// TimedTimeout is the authorization window for timed writes, zero for
	// plain writes.
	TimedTimeout time.Duration `json:"timed_timeout,omitempty"`

	structs value.StructResolver
	invoke  invokeFunc
	bindErr error
}

// Timed reports whether writes go out as timed interactions by default.
func (d *Descriptor) Timed() bool {
	return d.TimedTimeout > 0
}

type invokeConfig struct {
	timeout    time.Duration
	hasTimeout bool
}

// InvokeOption customizes a single Invoke call.
type InvokeOption func(*invokeConfig)

// WithTimedTimeout supplies the timed-write window instead of the
// descriptor's own. It is passed unchanged to the write method.
func WithTimedTimeout(d time.Duration) InvokeOption {
	return func(c *invokeConfig) {
		c.timeout = d
		c.hasTimeout = true
	}
}

// Invoke extracts the declared parameters from args, checks them against
// their declared types and performs the typed write on target. cb is handed
// to the write unchanged and is called later by the transport; Invoke
// never waits for it.
//
// Contract violations return an error wrapping ErrContract without
// calling the write method.
func (d *Descriptor) Invoke(ctx context.Context, target any, args Args, cb Callback, opts ...InvokeOption) error {
	cfg := invokeConfig{timeout: d.TimedTimeout}
	for _, o := range opts {
		o(&cfg)
	}

	vals := make([]any, len(d.Params))
	for i, p := range d.Params {
		raw, ok := args[p.Name]
		if !ok {
			return fmt.Errorf("%w: %s.%s needs %q (%s)", ErrMissingArgument, d.Cluster, d.Attribute, p.Name, p.Describe())
		}
		v, err := extract(p, d.structs, raw)
		if err != nil {
			return fmt.Errorf("%w: %s.%s %q: %v", ErrArgumentType, d.Cluster, d.Attribute, p.Name, err)
		}
		vals[i] = v
	}
	return d.invoke(ctx, target, vals, cfg.timeout, cb)
}

// extract converts one raw argument into the parameter's Go type.
func extract(p ParamSpec, structs value.StructResolver, raw any) (any, error) {
	if p.GoType == valueType {
		return value.FromAny(p.Ref, structs, raw)
	}
	if v, ok := raw.(value.Value); ok {
		if !v.Set || v.Null {
			return nil, fmt.Errorf("%s needs a value, got %s", p.Ref.Describe(), v)
		}
		raw = v.Data
	}
	v, err := schema.CoerceScalar(p.Ref.Type, raw)
	if err != nil {
		return nil, err
	}
	if reflect.TypeOf(v) != p.GoType {
		return nil, fmt.Errorf("got %T, want %v", v, p.GoType)
	}
	return v, nil
}

func targetError(d string, target any, want reflect.Type) error {
	return fmt.Errorf("%w: %s needs %v, got %T", ErrTargetType, d, want, target)
}
