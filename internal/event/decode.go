package event

import (
	"fmt"
	"time"

	"matter-go-home/internal/schema"
	"matter-go-home/internal/value"
)

// Report is an event as carried on the link and in the journal: field
// values keyed by field ID, structures as nested ID-keyed maps.
type Report struct {
	Node        uint64         `cbor:"1,keyasint" json:"node"`
	Endpoint    uint16         `cbor:"2,keyasint" json:"endpoint"`
	Cluster     uint32         `cbor:"3,keyasint" json:"cluster"`
	Event       uint32         `cbor:"4,keyasint" json:"event"`
	Number      uint64         `cbor:"5,keyasint" json:"number"`
	Priority    uint8          `cbor:"6,keyasint" json:"priority"`
	TimestampUs int64          `cbor:"7,keyasint" json:"timestamp_us"`
	Fields      map[uint32]any `cbor:"8,keyasint,omitempty" json:"fields,omitempty"`
}

// Decode builds a record from a report using the cluster schema.
// Unlike New, the result is validated.
func Decode(reg *schema.Registry, rep Report) (*Record, error) {
	cluster, def := reg.Event(rep.Cluster, rep.Event)
	if cluster == nil {
		return nil, fmt.Errorf("decode event: unknown cluster 0x%04X", rep.Cluster)
	}
	if def == nil {
		return nil, fmt.Errorf("decode event: cluster %s has no event 0x%02X", cluster.Name, rep.Event)
	}

	fields := make([]value.Value, len(def.Fields))
	for i, f := range def.Fields {
		raw, ok := rep.Fields[f.ID]
		if !ok {
			fields[i] = value.Absent()
			continue
		}
		v, err := value.FromAny(f.TypeRef, cluster.FindStruct, raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s%s.%s: %w", cluster.Name, def.Name, f.Name, err)
		}
		fields[i] = v
	}

	rec := New(cluster, def, fields...)
	rec.Node = rep.Node
	rec.Endpoint = rep.Endpoint
	rec.Number = rep.Number
	rec.Priority = schema.Priority(rep.Priority)
	if rep.TimestampUs != 0 {
		rec.Timestamp = time.UnixMicro(rep.TimestampUs).UTC()
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// Report converts the record back to its wire form.
func (r *Record) Report() Report {
	rep := Report{
		Node:     r.Node,
		Endpoint: r.Endpoint,
		Cluster:  r.Cluster.ID,
		Event:    r.Def.ID,
		Number:   r.Number,
		Priority: uint8(r.Priority),
	}
	if !r.Timestamp.IsZero() {
		rep.TimestampUs = r.Timestamp.UnixMicro()
	}
	for i, f := range r.Def.Fields {
		if i >= len(r.Fields) || r.Fields[i].IsAbsent() {
			continue
		}
		if rep.Fields == nil {
			rep.Fields = make(map[uint32]any, len(r.Fields))
		}
		rep.Fields[f.ID] = value.Wire(r.Fields[i])
	}
	return rep
}
