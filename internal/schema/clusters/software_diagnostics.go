package clusters

import "matter-go-home/internal/schema"

var SoftwareDiagnostics = schema.ClusterDef{
	ID:   0x0034,
	Name: "SoftwareDiagnostics",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "ThreadMetrics", TypeRef: schema.ListOfStruct("ThreadMetricsStruct"), Access: schema.AccessRead},
		{ID: 0x0001, Name: "CurrentHeapFree", TypeRef: schema.Scalar(schema.TypeUint64), Access: schema.AccessRead},
		{ID: 0x0002, Name: "CurrentHeapUsed", TypeRef: schema.Scalar(schema.TypeUint64), Access: schema.AccessRead},
		{ID: 0x0003, Name: "CurrentHeapHighWatermark", TypeRef: schema.Scalar(schema.TypeUint64), Access: schema.AccessRead},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "ResetWatermarks", Direction: schema.DirectionToServer},
	},
	Structs: []schema.StructDef{
		{Name: "ThreadMetricsStruct", Fields: []schema.FieldDef{
			{ID: 0, Name: "id", TypeRef: schema.Scalar(schema.TypeUint64)},
			{ID: 1, Name: "name", TypeRef: schema.Scalar(schema.TypeCharString), Optional: true},
			{ID: 2, Name: "stackFreeCurrent", TypeRef: schema.Scalar(schema.TypeUint32), Optional: true},
			{ID: 3, Name: "stackFreeMinimum", TypeRef: schema.Scalar(schema.TypeUint32), Optional: true},
			{ID: 4, Name: "stackSize", TypeRef: schema.Scalar(schema.TypeUint32), Optional: true},
		}},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "SoftwareFault", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "id", TypeRef: schema.Scalar(schema.TypeUint64)},
			{ID: 1, Name: "name", TypeRef: schema.Scalar(schema.TypeCharString), Optional: true},
			{ID: 2, Name: "faultRecording", TypeRef: schema.Scalar(schema.TypeOctetString), Optional: true},
		}},
	},
}
