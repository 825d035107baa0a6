// Package event implements the generic event record: one type whose shape
// comes from a schema event definition instead of one type per event.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"matter-go-home/internal/schema"
	"matter-go-home/internal/value"
)

// Header carries the routing metadata of an event occurrence.
type Header struct {
	Node      uint64          `json:"node"`
	Endpoint  uint16          `json:"endpoint"`
	Number    uint64          `json:"number"`
	Priority  schema.Priority `json:"priority"`
	Timestamp time.Time       `json:"timestamp"`
}

// Record is one decoded event. Fields follow Def.Fields in order and length.
type Record struct {
	Header
	Cluster *schema.ClusterDef
	Def     *schema.EventDef
	Fields  []value.Value
}

// New builds a record from already decoded field values. No validation is
// done here; see Validate.
func New(cluster *schema.ClusterDef, def *schema.EventDef, fields ...value.Value) *Record {
	return &Record{
		Header:  Header{Priority: def.Priority},
		Cluster: cluster,
		Def:     def,
		Fields:  fields,
	}
}

// TypeName returns "<Cluster><Event>Event", e.g. "BasicInformationStartUpEvent".
func (r *Record) TypeName() string {
	return r.Cluster.Name + r.Def.Name + "Event"
}

// Field returns a field by name. Unknown names yield an absent value.
func (r *Record) Field(name string) value.Value {
	key := schema.NormalizeName(name)
	for i, f := range r.Def.Fields {
		if schema.NormalizeName(f.Name) == key && i < len(r.Fields) {
			return r.Fields[i]
		}
	}
	return value.Absent()
}

// Render returns a deterministic multi-line representation:
//
//	BooleanStateStateChangeEvent {
//		stateValue: true
//	}
func (r *Record) Render() string {
	var b strings.Builder
	b.WriteString(r.TypeName())
	b.WriteString(" {\n")
	for i, f := range r.Def.Fields {
		b.WriteString("\t")
		b.WriteString(f.Name)
		b.WriteString(": ")
		if i < len(r.Fields) {
			b.WriteString(r.Fields[i].String())
		} else {
			b.WriteString("absent")
		}
		b.WriteString("\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func (r *Record) String() string { return r.Render() }

// Clone returns a copy that shares no mutable state with r. The schema
// definitions are shared; they are read-only.
func (r *Record) Clone() *Record {
	out := &Record{
		Header:  r.Header,
		Cluster: r.Cluster,
		Def:     r.Def,
	}
	if r.Fields != nil {
		out.Fields = make([]value.Value, len(r.Fields))
		for i, f := range r.Fields {
			out.Fields[i] = f.Clone()
		}
	}
	return out
}

// Equal reports whether both records describe the same event with
// structurally equal fields. Header metadata is compared too.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.Node != o.Node || r.Endpoint != o.Endpoint || r.Number != o.Number ||
		r.Priority != o.Priority || !r.Timestamp.Equal(o.Timestamp) {
		return false
	}
	if r.Cluster.ID != o.Cluster.ID || r.Def.ID != o.Def.ID || len(r.Fields) != len(o.Fields) {
		return false
	}
	for i := range r.Fields {
		if !r.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

// Validate checks the record shape against its definition: one value per
// declared field, no null in non-nullable fields and no absent required field.
func (r *Record) Validate() error {
	if len(r.Fields) != len(r.Def.Fields) {
		return fmt.Errorf("%s: %d fields, want %d", r.TypeName(), len(r.Fields), len(r.Def.Fields))
	}
	for i, f := range r.Def.Fields {
		v := r.Fields[i]
		switch {
		case v.IsAbsent() && !f.Optional:
			return fmt.Errorf("%s.%s: required field is absent", r.TypeName(), f.Name)
		case v.IsNull() && !f.Nullable:
			return fmt.Errorf("%s.%s: field is not nullable", r.TypeName(), f.Name)
		}
	}
	return nil
}

// Plain returns the fields as a map keyed by field name, omitting absent ones.
func (r *Record) Plain() map[string]any {
	m := make(map[string]any, len(r.Fields))
	for i, f := range r.Def.Fields {
		if i >= len(r.Fields) || r.Fields[i].IsAbsent() {
			continue
		}
		m[f.Name] = value.Plain(r.Fields[i])
	}
	return m
}

// MarshalJSON encodes the record for the HTTP API and MQTT.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Header
		Cluster string         `json:"cluster"`
		Event   string         `json:"event"`
		Fields  map[string]any `json:"fields"`
	}{
		Header:  r.Header,
		Cluster: r.Cluster.Name,
		Event:   r.Def.Name,
		Fields:  r.Plain(),
	})
}
