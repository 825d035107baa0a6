package dispatch

import (
	"context"
	"reflect"
	"time"

	"matter-go-home/internal/schema"
	"matter-go-home/internal/value"
)

// WriteRequest is a schema-level attribute write handed to an AttributeWriter.
type WriteRequest struct {
	ClusterID   uint32
	AttributeID uint32
	Ref         schema.TypeRef
	Value       value.Value
	// TimedTimeout is non-zero when the write must be sent as a timed
	// interaction with this authorization window.
	TimedTimeout time.Duration
}

// AttributeWriter is the generic write target used by schema-derived
// descriptors. WriteAttribute submits the request and returns; the
// outcome arrives later through cb.
type AttributeWriter interface {
	WriteAttribute(ctx context.Context, req WriteRequest, cb Callback) error
}

var writerType = reflect.TypeFor[AttributeWriter]()

// Schema declares every cluster of reg and adds a descriptor for each
// writable attribute. Those descriptors write through an AttributeWriter.
func (b *Builder) Schema(reg *schema.Registry) *Builder {
	for _, c := range reg.All() {
		b.Cluster(c)
		for _, a := range c.Attributes {
			if a.IsWritable() {
				b.Add(schemaDescriptor(c, a))
			}
		}
	}
	return b
}

// FromSchema builds a registry holding a descriptor for every writable
// attribute in reg.
func FromSchema(reg *schema.Registry) (*Registry, error) {
	return NewBuilder().Schema(reg).Build()
}

func schemaDescriptor(c schema.ClusterDef, a schema.AttributeDef) Descriptor {
	d := Descriptor{
		Cluster:      schema.LowerCamel(c.Name),
		Attribute:    schema.LowerCamel(a.Name),
		Params:       []ParamSpec{{Name: ValueParam, Ref: a.TypeRef, GoType: goTypeFor(a.TypeRef)}},
		TimedTimeout: a.WriteTimeout(),
	}
	name := d.Cluster + "." + d.Attribute
	clusterID, attrID, ref := c.ID, a.ID, a.TypeRef
	d.invoke = func(ctx context.Context, target any, vals []any, timeout time.Duration, cb Callback) error {
		w, ok := target.(AttributeWriter)
		if !ok {
			return targetError(name, target, writerType)
		}
		v, ok := vals[0].(value.Value)
		if !ok {
			v = value.Of(vals[0])
		}
		return w.WriteAttribute(ctx, WriteRequest{
			ClusterID:    clusterID,
			AttributeID:  attrID,
			Ref:          ref,
			Value:        v,
			TimedTimeout: timeout,
		}, cb)
	}
	return d
}
