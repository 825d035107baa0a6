package clusters

import "matter-go-home/internal/schema"

// UnitTesting is the manufacturer specific test cluster. It carries the
// only timed-write attribute in the standard catalog.
var UnitTesting = schema.ClusterDef{
	ID:   0xFFF1FC05,
	Name: "UnitTesting",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "Boolean", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0001, Name: "Bitmap8", TypeRef: schema.Scalar(schema.TypeBitmap8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0005, Name: "Int8u", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0006, Name: "Int16u", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0008, Name: "Int32u", TypeRef: schema.Scalar(schema.TypeUint32), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x000C, Name: "Int64u", TypeRef: schema.Scalar(schema.TypeUint64), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x000D, Name: "Int8s", TypeRef: schema.Scalar(schema.TypeInt8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x000E, Name: "Int16s", TypeRef: schema.Scalar(schema.TypeInt16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0010, Name: "Int32s", TypeRef: schema.Scalar(schema.TypeInt32), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0014, Name: "Int64s", TypeRef: schema.Scalar(schema.TypeInt64), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0015, Name: "Enum8", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0017, Name: "FloatSingle", TypeRef: schema.Scalar(schema.TypeSingle), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0018, Name: "FloatDouble", TypeRef: schema.Scalar(schema.TypeDouble), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0019, Name: "OctetString", TypeRef: schema.Scalar(schema.TypeOctetString), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x001A, Name: "ListInt8u", TypeRef: schema.ListOf(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x001E, Name: "CharString", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0020, Name: "EpochUs", TypeRef: schema.Scalar(schema.TypeEpochUs), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x002F, Name: "StructAttr", TypeRef: schema.StructRef("SimpleStruct"), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0030, Name: "TimedWriteBoolean", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite | schema.AccessTimed, TimedTimeoutMs: 10000},
		{ID: 0x0031, Name: "GeneralErrorBoolean", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0032, Name: "ClusterErrorBoolean", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x00FF, Name: "Unsupported", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x4005, Name: "NullableInt8u", TypeRef: schema.NullableScalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x401E, Name: "NullableCharString", TypeRef: schema.NullableScalar(schema.TypeCharString), Access: schema.AccessRead | schema.AccessWrite},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "Test", Direction: schema.DirectionToServer},
		{ID: 0x01, Name: "TestNotHandled", Direction: schema.DirectionToServer},
		{ID: 0x02, Name: "TestSpecific", Direction: schema.DirectionToServer},
	},
	Structs: []schema.StructDef{
		{Name: "SimpleStruct", Fields: []schema.FieldDef{
			{ID: 0, Name: "a", TypeRef: schema.Scalar(schema.TypeUint8)},
			{ID: 1, Name: "b", TypeRef: schema.Scalar(schema.TypeBool)},
			{ID: 2, Name: "c", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 3, Name: "d", TypeRef: schema.Scalar(schema.TypeOctetString)},
			{ID: 4, Name: "e", TypeRef: schema.Scalar(schema.TypeCharString)},
			{ID: 5, Name: "f", TypeRef: schema.Scalar(schema.TypeBitmap8)},
			{ID: 6, Name: "g", TypeRef: schema.Scalar(schema.TypeSingle)},
			{ID: 7, Name: "h", TypeRef: schema.Scalar(schema.TypeDouble)},
		}},
	},
	Events: []schema.EventDef{
		{ID: 0x01, Name: "TestEvent", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 1, Name: "arg1", TypeRef: schema.Scalar(schema.TypeUint8)},
			{ID: 2, Name: "arg2", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 3, Name: "arg3", TypeRef: schema.Scalar(schema.TypeBool)},
			{ID: 4, Name: "arg4", TypeRef: schema.StructRef("SimpleStruct")},
			{ID: 5, Name: "arg5", TypeRef: schema.ListOfStruct("SimpleStruct")},
			{ID: 6, Name: "arg6", TypeRef: schema.ListOf(schema.TypeEnum8)},
		}},
		{ID: 0x02, Name: "TestFabricScopedEvent", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 254, Name: "fabricIndex", TypeRef: schema.Scalar(schema.TypeFabricIndex)},
		}},
	},
}
