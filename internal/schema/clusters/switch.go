package clusters

import "matter-go-home/internal/schema"

var Switch = schema.ClusterDef{
	ID:   0x003B,
	Name: "Switch",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "NumberOfPositions", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead},
		{ID: 0x0001, Name: "CurrentPosition", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x0002, Name: "MultiPressMax", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "SwitchLatched", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "newPosition", TypeRef: schema.Scalar(schema.TypeUint8)},
		}},
		{ID: 0x01, Name: "InitialPress", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "newPosition", TypeRef: schema.Scalar(schema.TypeUint8)},
		}},
		{ID: 0x02, Name: "LongPress", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "newPosition", TypeRef: schema.Scalar(schema.TypeUint8)},
		}},
		{ID: 0x03, Name: "ShortRelease", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "previousPosition", TypeRef: schema.Scalar(schema.TypeUint8)},
		}},
		{ID: 0x04, Name: "LongRelease", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "previousPosition", TypeRef: schema.Scalar(schema.TypeUint8)},
		}},
		{ID: 0x05, Name: "MultiPressOngoing", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "newPosition", TypeRef: schema.Scalar(schema.TypeUint8)},
			{ID: 1, Name: "currentNumberOfPressesCounted", TypeRef: schema.Scalar(schema.TypeUint8)},
		}},
		{ID: 0x06, Name: "MultiPressComplete", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "previousPosition", TypeRef: schema.Scalar(schema.TypeUint8)},
			{ID: 1, Name: "totalNumberOfPressesCounted", TypeRef: schema.Scalar(schema.TypeUint8)},
		}},
	},
}
