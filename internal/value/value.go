// Package value holds dynamically typed field values decoded against the
// cluster schema. A Value distinguishes absent, present-and-null and
// present-with-data, so nullable and optional fields share one representation.
package value

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"matter-go-home/internal/schema"
)

// Value is one field slot. Data holds a canonical scalar (see
// schema.DataType.GoType), string, []byte, *Struct or List.
type Value struct {
	Set  bool
	Null bool
	Data any
}

// Of returns a present value.
func Of(data any) Value {
	return Value{Set: true, Data: data}
}

// Null returns a present-and-null value.
func Null() Value {
	return Value{Set: true, Null: true}
}

// Absent returns the value of an omitted optional field.
func Absent() Value {
	return Value{}
}

// IsAbsent reports whether the field was omitted.
func (v Value) IsAbsent() bool { return !v.Set }

// IsNull reports whether the field is present and null.
func (v Value) IsNull() bool { return v.Set && v.Null }

// Clone returns an independent copy. Byte slices get a fresh buffer,
// structs and lists are copied recursively.
func (v Value) Clone() Value {
	out := v
	switch d := v.Data.(type) {
	case []byte:
		if d != nil {
			out.Data = append([]byte(nil), d...)
		}
	case *Struct:
		out.Data = d.Clone()
	case List:
		out.Data = d.Clone()
	}
	return out
}

// Equal reports structural equality.
func (v Value) Equal(o Value) bool {
	if v.Set != o.Set || v.Null != o.Null {
		return false
	}
	if !v.Set || v.Null {
		return true
	}
	switch a := v.Data.(type) {
	case []byte:
		b, ok := o.Data.([]byte)
		return ok && bytes.Equal(a, b)
	case *Struct:
		b, ok := o.Data.(*Struct)
		return ok && a.Equal(b)
	case List:
		b, ok := o.Data.(List)
		return ok && a.Equal(b)
	case float64:
		// Bitwise, so a NaN equals its copy.
		b, ok := o.Data.(float64)
		return ok && math.Float64bits(a) == math.Float64bits(b)
	case float32:
		b, ok := o.Data.(float32)
		return ok && math.Float32bits(a) == math.Float32bits(b)
	}
	return reflect.DeepEqual(v.Data, o.Data)
}

// String renders the value for logs and debugging.
func (v Value) String() string {
	if !v.Set {
		return "absent"
	}
	if v.Null {
		return "null"
	}
	return renderData(v.Data)
}

func renderData(d any) string {
	switch x := d.(type) {
	case nil:
		return "null"
	case []byte:
		return hex.EncodeToString(x)
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case *Struct:
		return x.Render()
	case List:
		return x.String()
	}
	return fmt.Sprint(d)
}

// List is an ordered sequence of values.
type List []Value

// Clone copies the list element-wise.
func (l List) Clone() List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	for i, e := range l {
		out[i] = e.Clone()
	}
	return out
}

// Equal compares element-wise.
func (l List) Equal(o List) bool {
	if len(l) != len(o) {
		return false
	}
	for i := range l {
		if !l[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// String renders the list as "[e1, e2]".
func (l List) String() string {
	parts := make([]string, len(l))
	for i, e := range l {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Struct is an instance of a schema structure. Fields follow Def.Fields order.
type Struct struct {
	Def    *schema.StructDef
	Fields []Value
}

// NewStruct builds a structure value from already decoded fields.
func NewStruct(def *schema.StructDef, fields ...Value) *Struct {
	return &Struct{Def: def, Fields: fields}
}

// Field returns a field by name, absent when the structure has no such field.
func (s *Struct) Field(name string) Value {
	key := schema.NormalizeName(name)
	for i, f := range s.Def.Fields {
		if schema.NormalizeName(f.Name) == key && i < len(s.Fields) {
			return s.Fields[i]
		}
	}
	return Absent()
}

// Clone returns a deep copy. The definition is shared, it is never mutated.
func (s *Struct) Clone() *Struct {
	if s == nil {
		return nil
	}
	out := &Struct{Def: s.Def}
	if s.Fields != nil {
		out.Fields = make([]Value, len(s.Fields))
		for i, f := range s.Fields {
			out.Fields[i] = f.Clone()
		}
	}
	return out
}

// Equal reports structural equality.
func (s *Struct) Equal(o *Struct) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.Def.Name != o.Def.Name || len(s.Fields) != len(o.Fields) {
		return false
	}
	for i := range s.Fields {
		if !s.Fields[i].Equal(o.Fields[i]) {
			return false
		}
	}
	return true
}

// Render returns "Name {a: 1, b: true}" with fields in declaration order.
func (s *Struct) Render() string {
	var b strings.Builder
	b.WriteString(s.Def.Name)
	b.WriteString(" {")
	for i, f := range s.Def.Fields {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(" ")
		b.WriteString(f.Name)
		b.WriteString(": ")
		if i < len(s.Fields) {
			b.WriteString(s.Fields[i].String())
		} else {
			b.WriteString("absent")
		}
	}
	b.WriteString(" }")
	return b.String()
}

func (s *Struct) String() string { return s.Render() }
