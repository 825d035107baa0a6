package schema

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DataType is a Matter data model type tag.
type DataType uint8

// Data type tags. Semantic aliases (node_id, fabric_idx, ...) share the
// canonical Go type of their base integer type.
const (
	TypeUnknown DataType = iota
	TypeBool
	TypeUint8
	TypeUint16
	TypeUint24
	TypeUint32
	TypeUint40
	TypeUint48
	TypeUint56
	TypeUint64
	TypeInt8
	TypeInt16
	TypeInt24
	TypeInt32
	TypeInt40
	TypeInt48
	TypeInt56
	TypeInt64
	TypeEnum8
	TypeEnum16
	TypeBitmap8
	TypeBitmap16
	TypeBitmap32
	TypeBitmap64
	TypeSingle
	TypeDouble
	TypeOctetString
	TypeCharString
	TypeStruct
	TypeList
	TypeNodeID
	TypeFabricIndex
	TypeClusterID
	TypeEndpointNo
	TypeEpochUs
	TypeDeviceTypeID
	TypeVendorID
)

type kind uint8

const (
	kindNone kind = iota
	kindBool
	kindUnsigned
	kindSigned
	kindFloat
	kindBytes
	kindString
	kindStruct
	kindList
)

type typeInfo struct {
	name string
	desc string
	kind kind
	bits uint
}

var typeTable = map[DataType]typeInfo{
	TypeBool:         {"bool", "boolean", kindBool, 1},
	TypeUint8:        {"uint8", "unsigned 8-bit integer", kindUnsigned, 8},
	TypeUint16:       {"uint16", "unsigned 16-bit integer", kindUnsigned, 16},
	TypeUint24:       {"uint24", "unsigned 24-bit integer", kindUnsigned, 24},
	TypeUint32:       {"uint32", "unsigned 32-bit integer", kindUnsigned, 32},
	TypeUint40:       {"uint40", "unsigned 40-bit integer", kindUnsigned, 40},
	TypeUint48:       {"uint48", "unsigned 48-bit integer", kindUnsigned, 48},
	TypeUint56:       {"uint56", "unsigned 56-bit integer", kindUnsigned, 56},
	TypeUint64:       {"uint64", "unsigned 64-bit integer", kindUnsigned, 64},
	TypeInt8:         {"int8", "signed 8-bit integer", kindSigned, 8},
	TypeInt16:        {"int16", "signed 16-bit integer", kindSigned, 16},
	TypeInt24:        {"int24", "signed 24-bit integer", kindSigned, 24},
	TypeInt32:        {"int32", "signed 32-bit integer", kindSigned, 32},
	TypeInt40:        {"int40", "signed 40-bit integer", kindSigned, 40},
	TypeInt48:        {"int48", "signed 48-bit integer", kindSigned, 48},
	TypeInt56:        {"int56", "signed 56-bit integer", kindSigned, 56},
	TypeInt64:        {"int64", "signed 64-bit integer", kindSigned, 64},
	TypeEnum8:        {"enum8", "8-bit enumeration", kindUnsigned, 8},
	TypeEnum16:       {"enum16", "16-bit enumeration", kindUnsigned, 16},
	TypeBitmap8:      {"map8", "8-bit bitmap", kindUnsigned, 8},
	TypeBitmap16:     {"map16", "16-bit bitmap", kindUnsigned, 16},
	TypeBitmap32:     {"map32", "32-bit bitmap", kindUnsigned, 32},
	TypeBitmap64:     {"map64", "64-bit bitmap", kindUnsigned, 64},
	TypeSingle:       {"single", "single precision float", kindFloat, 32},
	TypeDouble:       {"double", "double precision float", kindFloat, 64},
	TypeOctetString:  {"octstr", "raw byte sequence", kindBytes, 0},
	TypeCharString:   {"string", "UTF-8 string", kindString, 0},
	TypeStruct:       {"struct", "structure", kindStruct, 0},
	TypeList:         {"list", "list", kindList, 0},
	TypeNodeID:       {"node_id", "node identifier", kindUnsigned, 64},
	TypeFabricIndex:  {"fabric_idx", "fabric index", kindUnsigned, 8},
	TypeClusterID:    {"cluster_id", "cluster identifier", kindUnsigned, 32},
	TypeEndpointNo:   {"endpoint_no", "endpoint number", kindUnsigned, 16},
	TypeEpochUs:      {"epoch_us", "epoch time in microseconds", kindUnsigned, 64},
	TypeDeviceTypeID: {"devtype_id", "device type identifier", kindUnsigned, 32},
	TypeVendorID:     {"vendor_id", "vendor identifier", kindUnsigned, 16},
}

var typeByName = func() map[string]DataType {
	m := make(map[string]DataType, len(typeTable))
	for dt, info := range typeTable {
		m[info.name] = dt
	}
	return m
}()

// TypeName returns the short schema name of a data type, e.g. "uint16".
func (dt DataType) TypeName() string {
	if info, ok := typeTable[dt]; ok {
		return info.name
	}
	return fmt.Sprintf("0x%02X", uint8(dt))
}

// String implements fmt.Stringer.
func (dt DataType) String() string {
	return dt.TypeName()
}

// Describe returns a human readable description, e.g. "unsigned 16-bit integer".
func (dt DataType) Describe() string {
	if info, ok := typeTable[dt]; ok {
		return info.desc
	}
	return "unknown"
}

// IsNumeric reports whether the type is an integer, enum, bitmap or float.
func (dt DataType) IsNumeric() bool {
	switch typeTable[dt].kind {
	case kindUnsigned, kindSigned, kindFloat:
		return true
	}
	return false
}

// ParseDataType resolves a short type name.
func ParseDataType(name string) (DataType, error) {
	dt, ok := typeByName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return TypeUnknown, fmt.Errorf("schema: unknown data type %q", name)
	}
	return dt, nil
}

// MarshalText encodes the type as its short name.
func (dt DataType) MarshalText() ([]byte, error) {
	return []byte(dt.TypeName()), nil
}

// UnmarshalText decodes a short type name.
func (dt *DataType) UnmarshalText(b []byte) error {
	v, err := ParseDataType(string(b))
	if err != nil {
		return err
	}
	*dt = v
	return nil
}

var (
	goBool    = reflect.TypeOf(false)
	goUint8   = reflect.TypeOf(uint8(0))
	goUint16  = reflect.TypeOf(uint16(0))
	goUint32  = reflect.TypeOf(uint32(0))
	goUint64  = reflect.TypeOf(uint64(0))
	goInt8    = reflect.TypeOf(int8(0))
	goInt16   = reflect.TypeOf(int16(0))
	goInt32   = reflect.TypeOf(int32(0))
	goInt64   = reflect.TypeOf(int64(0))
	goFloat32 = reflect.TypeOf(float32(0))
	goFloat64 = reflect.TypeOf(float64(0))
	goBytes   = reflect.TypeOf([]byte(nil))
	goString  = reflect.TypeOf("")
)

// GoType returns the canonical Go type used to carry values of dt.
// Struct and list types return nil; they are carried by package value.
func (dt DataType) GoType() reflect.Type {
	info, ok := typeTable[dt]
	if !ok {
		return nil
	}
	switch info.kind {
	case kindBool:
		return goBool
	case kindUnsigned:
		switch {
		case info.bits <= 8:
			return goUint8
		case info.bits <= 16:
			return goUint16
		case info.bits <= 32:
			return goUint32
		default:
			return goUint64
		}
	case kindSigned:
		switch {
		case info.bits <= 8:
			return goInt8
		case info.bits <= 16:
			return goInt16
		case info.bits <= 32:
			return goInt32
		default:
			return goInt64
		}
	case kindFloat:
		if info.bits == 32 {
			return goFloat32
		}
		return goFloat64
	case kindBytes:
		return goBytes
	case kindString:
		return goString
	}
	return nil
}

// CoerceScalar converts a dynamically typed value into the canonical Go type
// of dt. Integers are range checked against the declared width. Octet strings
// accept []byte or a "hex:"-prefixed string.
func CoerceScalar(dt DataType, v any) (any, error) {
	info, ok := typeTable[dt]
	if !ok {
		return nil, fmt.Errorf("unsupported type %s", dt)
	}
	switch info.kind {
	case kindBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as %s", v, info.desc)
		}
		return b, nil

	case kindUnsigned:
		u, ok := toUint64(v)
		if !ok {
			return nil, fmt.Errorf("cannot use %T (%v) as %s", v, v, info.desc)
		}
		if info.bits < 64 && u > uint64(1)<<info.bits-1 {
			return nil, fmt.Errorf("value %d overflows %s", u, info.desc)
		}
		switch dt.GoType() {
		case goUint8:
			return uint8(u), nil
		case goUint16:
			return uint16(u), nil
		case goUint32:
			return uint32(u), nil
		}
		return u, nil

	case kindSigned:
		i, ok := toInt64(v)
		if !ok {
			return nil, fmt.Errorf("cannot use %T (%v) as %s", v, v, info.desc)
		}
		if info.bits < 64 {
			lim := int64(1) << (info.bits - 1)
			if i < -lim || i > lim-1 {
				return nil, fmt.Errorf("value %d overflows %s", i, info.desc)
			}
		}
		switch dt.GoType() {
		case goInt8:
			return int8(i), nil
		case goInt16:
			return int16(i), nil
		case goInt32:
			return int32(i), nil
		}
		return i, nil

	case kindFloat:
		f, ok := toFloat64(v)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as %s", v, info.desc)
		}
		if info.bits == 32 {
			if !math.IsInf(f, 0) && math.Abs(f) > math.MaxFloat32 {
				return nil, fmt.Errorf("value %g overflows %s", f, info.desc)
			}
			return float32(f), nil
		}
		return f, nil

	case kindString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("cannot use %T as %s", v, info.desc)
		}
		if !utf8.ValidString(s) {
			return nil, fmt.Errorf("%s is not valid UTF-8", info.desc)
		}
		return s, nil

	case kindBytes:
		switch b := v.(type) {
		case []byte:
			return append([]byte{}, b...), nil
		case string:
			if !strings.HasPrefix(b, "hex:") {
				return nil, fmt.Errorf("octet string must be []byte or \"hex:\" string")
			}
			raw, err := hex.DecodeString(strings.TrimPrefix(b, "hex:"))
			if err != nil {
				return nil, fmt.Errorf("decode hex octet string: %w", err)
			}
			return raw, nil
		}
		return nil, fmt.Errorf("cannot use %T as %s", v, info.desc)
	}
	return nil, fmt.Errorf("%s is not a scalar type", dt)
}

func toUint64(v any) (uint64, bool) {
	switch val := v.(type) {
	case uint8:
		return uint64(val), true
	case uint16:
		return uint64(val), true
	case uint32:
		return uint64(val), true
	case uint64:
		return val, true
	case uint:
		return uint64(val), true
	case int, int8, int16, int32, int64:
		i, _ := toInt64(val)
		if i < 0 {
			return 0, false
		}
		return uint64(i), true
	case float64:
		if val < 0 || val != math.Trunc(val) || val >= math.MaxUint64 {
			return 0, false
		}
		return uint64(val), true
	case float32:
		return toUint64(float64(val))
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return toUint64(i)
		}
		u, err := strconv.ParseUint(val.String(), 10, 64)
		return u, err == nil
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case int:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case uint:
		return toInt64(uint64(val))
	case float64:
		if val != math.Trunc(val) || val >= math.MaxInt64 || val < math.MinInt64 {
			return 0, false
		}
		return int64(val), true
	case float32:
		return toInt64(float64(val))
	case json.Number:
		i, err := val.Int64()
		return i, err == nil
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	}
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	if u, ok := toUint64(v); ok {
		return float64(u), true
	}
	return 0, false
}
