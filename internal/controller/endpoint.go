package controller

import (
	"context"
	"time"

	"matter-go-home/internal/dispatch"
	"matter-go-home/internal/schema"
	"matter-go-home/internal/schema/clusters"
	"matter-go-home/internal/transport"
	"matter-go-home/internal/value"
)

// Endpoint addresses one endpoint of a node over the link. It is the write
// target for both schema-derived descriptors (WriteAttribute) and the typed
// bindings below.
type Endpoint struct {
	link transport.Link
	Node uint64
	ID   uint16
}

// Endpoint returns the write target for node/endpoint.
func (c *Controller) Endpoint(node uint64, endpoint uint16) *Endpoint {
	return &Endpoint{link: c.link, Node: node, ID: endpoint}
}

// WriteAttribute implements dispatch.AttributeWriter.
func (e *Endpoint) WriteAttribute(ctx context.Context, req dispatch.WriteRequest, cb dispatch.Callback) error {
	return e.link.WriteAttribute(ctx, e.Node, e.ID, req, cb)
}

func (e *Endpoint) write(ctx context.Context, cluster *schema.ClusterDef, attr uint32, v value.Value, timeout time.Duration, cb dispatch.Callback) error {
	a := cluster.FindAttribute(attr)
	return e.WriteAttribute(ctx, dispatch.WriteRequest{
		ClusterID:    cluster.ID,
		AttributeID:  attr,
		Ref:          a.TypeRef,
		Value:        v,
		TimedTimeout: timeout,
	}, cb)
}

// WriteIdentifyTimeAttribute writes Identify.IdentifyTime.
func (e *Endpoint) WriteIdentifyTimeAttribute(ctx context.Context, v uint16, cb dispatch.Callback) error {
	return e.write(ctx, &clusters.Identify, 0x0000, value.Of(v), 0, cb)
}

// WriteOnTimeAttribute writes OnOff.OnTime.
func (e *Endpoint) WriteOnTimeAttribute(ctx context.Context, v uint16, cb dispatch.Callback) error {
	return e.write(ctx, &clusters.OnOff, 0x4001, value.Of(v), 0, cb)
}

// WriteOnLevelAttribute writes LevelControl.OnLevel, which is nullable.
func (e *Endpoint) WriteOnLevelAttribute(ctx context.Context, v value.Value, cb dispatch.Callback) error {
	return e.write(ctx, &clusters.LevelControl, 0x0011, v, 0, cb)
}

// WriteOccupiedHeatingSetpointAttribute writes Thermostat.OccupiedHeatingSetpoint
// in hundredths of a degree Celsius.
func (e *Endpoint) WriteOccupiedHeatingSetpointAttribute(ctx context.Context, v int16, cb dispatch.Callback) error {
	return e.write(ctx, &clusters.Thermostat, 0x0012, value.Of(v), 0, cb)
}

// WriteTimedWriteBooleanAttribute writes UnitTesting.TimedWriteBoolean in a
// timed interaction.
func (e *Endpoint) WriteTimedWriteBooleanAttribute(ctx context.Context, v bool, timeout time.Duration, cb dispatch.Callback) error {
	return e.write(ctx, &clusters.UnitTesting, 0x0030, value.Of(v), timeout, cb)
}

// Bindings returns the typed write bindings. They replace the
// schema-derived descriptors for the same attributes.
func Bindings() []dispatch.Descriptor {
	return []dispatch.Descriptor{
		dispatch.Bind("Identify", "IdentifyTime", schema.Scalar(schema.TypeUint16), (*Endpoint).WriteIdentifyTimeAttribute),
		dispatch.Bind("OnOff", "OnTime", schema.Scalar(schema.TypeUint16), (*Endpoint).WriteOnTimeAttribute),
		dispatch.Bind("LevelControl", "OnLevel", schema.NullableScalar(schema.TypeUint8), (*Endpoint).WriteOnLevelAttribute),
		dispatch.Bind("Thermostat", "OccupiedHeatingSetpoint", schema.Scalar(schema.TypeInt16), (*Endpoint).WriteOccupiedHeatingSetpointAttribute),
		dispatch.BindTimed("UnitTesting", "TimedWriteBoolean", schema.Scalar(schema.TypeBool),
			schema.DefaultTimedTimeout, (*Endpoint).WriteTimedWriteBooleanAttribute),
	}
}

// NewWriteRegistry builds the dispatch table from the schema plus the typed
// bindings.
func NewWriteRegistry(reg *schema.Registry) (*dispatch.Registry, error) {
	return dispatch.NewBuilder().Schema(reg).Add(Bindings()...).Build()
}
