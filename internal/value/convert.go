package value

import (
	"fmt"
	"reflect"

	"matter-go-home/internal/schema"
)

// StructResolver finds structure definitions by name, usually
// (*schema.ClusterDef).FindStruct of the owning cluster.
type StructResolver func(name string) *schema.StructDef

// FromAny converts a loosely typed value (decoded JSON, CBOR, YAML or a
// Lua table) into a Value of the declared type. Structures may be given as
// maps keyed by field name or by field ID.
//
// A Value argument is checked like any other: absent is rejected, null needs
// a nullable type and the data is converted again against ref.
func FromAny(ref schema.TypeRef, structs StructResolver, raw any) (Value, error) {
	if v, ok := raw.(Value); ok {
		switch {
		case !v.Set:
			return Value{}, fmt.Errorf("absent value for %s", ref.Describe())
		case v.Null:
			raw = nil
		default:
			raw = v.Data
		}
	}
	if raw == nil {
		if !ref.Nullable {
			return Value{}, fmt.Errorf("null is not allowed for %s", ref.Describe())
		}
		return Null(), nil
	}

	switch ref.Type {
	case schema.TypeList:
		l, err := listFromAny(ref.ElemRef(), structs, raw)
		if err != nil {
			return Value{}, err
		}
		return Of(l), nil
	case schema.TypeStruct:
		s, err := structFromAny(ref.Struct, structs, raw)
		if err != nil {
			return Value{}, err
		}
		return Of(s), nil
	}

	d, err := schema.CoerceScalar(ref.Type, raw)
	if err != nil {
		return Value{}, err
	}
	return Of(d), nil
}

func listFromAny(elem schema.TypeRef, structs StructResolver, raw any) (List, error) {
	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("cannot use %T as list", raw)
	}
	out := make(List, rv.Len())
	for i := range out {
		v, err := FromAny(elem, structs, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func structFromAny(name string, structs StructResolver, raw any) (*Struct, error) {
	if s, ok := raw.(*Struct); ok {
		return checkStruct(name, structs, s)
	}
	def, err := resolveStruct(name, structs)
	if err != nil {
		return nil, err
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() != reflect.Map {
		return nil, fmt.Errorf("cannot use %T as %s", raw, name)
	}
	byKey := make(map[string]any, rv.Len())
	byID := make(map[uint64]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key()
		if k.Kind() == reflect.Interface {
			k = k.Elem()
		}
		switch k.Kind() {
		case reflect.String:
			byKey[schema.NormalizeName(k.String())] = iter.Value().Interface()
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if k.Int() >= 0 {
				byID[uint64(k.Int())] = iter.Value().Interface()
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			byID[k.Uint()] = iter.Value().Interface()
		default:
			return nil, fmt.Errorf("%s: unsupported key type %s", name, k.Kind())
		}
	}

	s := &Struct{Def: def, Fields: make([]Value, len(def.Fields))}
	for i, f := range def.Fields {
		fv, ok := byKey[schema.NormalizeName(f.Name)]
		if !ok {
			fv, ok = byID[uint64(f.ID)]
		}
		if !ok {
			if f.Optional {
				s.Fields[i] = Absent()
				continue
			}
			return nil, fmt.Errorf("%s: missing field %q", name, f.Name)
		}
		v, err := fieldFromAny(f, structs, fv)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
		s.Fields[i] = v
	}
	return s, nil
}

func resolveStruct(name string, structs StructResolver) (*schema.StructDef, error) {
	if structs == nil {
		return nil, fmt.Errorf("no definition for struct %q", name)
	}
	def := structs(name)
	if def == nil {
		return nil, fmt.Errorf("unknown struct %q", name)
	}
	return def, nil
}

// checkStruct validates a prebuilt structure against the declared one and
// returns a checked copy.
func checkStruct(name string, structs StructResolver, in *Struct) (*Struct, error) {
	if in == nil || in.Def == nil {
		return nil, fmt.Errorf("struct %q without definition", name)
	}
	if schema.NormalizeName(in.Def.Name) != schema.NormalizeName(name) {
		return nil, fmt.Errorf("cannot use struct %s as %s", in.Def.Name, name)
	}
	def := in.Def
	if structs != nil {
		if d := structs(name); d != nil {
			def = d
		}
	}
	if len(in.Fields) != len(def.Fields) {
		return nil, fmt.Errorf("%s: %d fields, want %d", name, len(in.Fields), len(def.Fields))
	}
	out := &Struct{Def: def, Fields: make([]Value, len(def.Fields))}
	for i, f := range def.Fields {
		v, err := fieldFromAny(f, structs, in.Fields[i])
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", name, f.Name, err)
		}
		out.Fields[i] = v
	}
	return out, nil
}

// fieldFromAny is FromAny for a structure field, where an absent value is
// allowed when the field is optional.
func fieldFromAny(f schema.FieldDef, structs StructResolver, raw any) (Value, error) {
	if v, ok := raw.(Value); ok && v.IsAbsent() {
		if !f.Optional {
			return Value{}, fmt.Errorf("missing field %q", f.Name)
		}
		return Absent(), nil
	}
	return FromAny(f.TypeRef, structs, raw)
}

// Plain converts a value into plain Go data for JSON, Lua and filter
// expressions. Structures become maps keyed by field name with absent fields
// left out. Null and absent become nil.
func Plain(v Value) any {
	if !v.Set || v.Null {
		return nil
	}
	switch d := v.Data.(type) {
	case *Struct:
		m := make(map[string]any, len(d.Fields))
		for i, f := range d.Fields {
			if f.IsAbsent() || i >= len(d.Def.Fields) {
				continue
			}
			m[d.Def.Fields[i].Name] = Plain(f)
		}
		return m
	case List:
		out := make([]any, len(d))
		for i, e := range d {
			out[i] = Plain(e)
		}
		return out
	}
	return v.Data
}

// Wire converts a value into the form carried on the link: structures
// become maps keyed by field ID.
func Wire(v Value) any {
	if !v.Set || v.Null {
		return nil
	}
	switch d := v.Data.(type) {
	case *Struct:
		m := make(map[uint32]any, len(d.Fields))
		for i, f := range d.Fields {
			if f.IsAbsent() || i >= len(d.Def.Fields) {
				continue
			}
			m[d.Def.Fields[i].ID] = Wire(f)
		}
		return m
	case List:
		out := make([]any, len(d))
		for i, e := range d {
			out[i] = Wire(e)
		}
		return out
	}
	return v.Data
}
