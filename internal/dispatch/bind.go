package dispatch

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"matter-go-home/internal/schema"
)

// Bind wraps a strongly typed write method of client type C taking a value
// of type T. T must be the canonical Go type of ref, or value.Value when ref
// is nullable, a struct or a list; a mismatch is reported by Builder.Build.
//
//	dispatch.Bind("onOff", "onTime", schema.Scalar(schema.TypeUint16), (*OnOffClient).WriteOnTimeAttribute)
func Bind[C, T any](cluster, attribute string, ref schema.TypeRef, write func(C, context.Context, T, Callback) error) Descriptor {
	d := newTypedDescriptor[T](cluster, attribute, ref)
	name := d.Cluster + "." + d.Attribute
	d.invoke = func(ctx context.Context, target any, vals []any, _ time.Duration, cb Callback) error {
		client, ok := target.(C)
		if !ok {
			return targetError(name, target, reflect.TypeFor[C]())
		}
		v, ok := vals[0].(T)
		if !ok {
			return fmt.Errorf("%w: %s got %T", ErrArgumentType, name, vals[0])
		}
		return write(client, ctx, v, cb)
	}
	return d
}

// BindTimed is Bind for attributes that must be written in a timed
// interaction. The timeout is stored on the descriptor and passed to write
// unless the caller overrides it with WithTimedTimeout.
func BindTimed[C, T any](cluster, attribute string, ref schema.TypeRef, timeout time.Duration, write func(C, context.Context, T, time.Duration, Callback) error) Descriptor {
	d := newTypedDescriptor[T](cluster, attribute, ref)
	d.TimedTimeout = timeout
	if timeout <= 0 && d.bindErr == nil {
		d.bindErr = fmt.Errorf("dispatch: %s.%s: timed write needs a positive timeout", d.Cluster, d.Attribute)
	}
	name := d.Cluster + "." + d.Attribute
	d.invoke = func(ctx context.Context, target any, vals []any, timeout time.Duration, cb Callback) error {
		client, ok := target.(C)
		if !ok {
			return targetError(name, target, reflect.TypeFor[C]())
		}
		v, ok := vals[0].(T)
		if !ok {
			return fmt.Errorf("%w: %s got %T", ErrArgumentType, name, vals[0])
		}
		return write(client, ctx, v, timeout, cb)
	}
	return d
}

func newTypedDescriptor[T any](cluster, attribute string, ref schema.TypeRef) Descriptor {
	d := Descriptor{
		Cluster:   schema.LowerCamel(cluster),
		Attribute: schema.LowerCamel(attribute),
		Params:    []ParamSpec{{Name: ValueParam, Ref: ref, GoType: goTypeFor(ref)}},
	}
	if got := reflect.TypeFor[T](); got != d.Params[0].GoType {
		d.bindErr = fmt.Errorf("dispatch: %s.%s: %s is carried as %v, binding takes %v",
			d.Cluster, d.Attribute, ref.Describe(), d.Params[0].GoType, got)
	}
	return d
}
