package clusters

import "matter-go-home/internal/schema"

var BasicInformation = schema.ClusterDef{
	ID:   0x0028,
	Name: "BasicInformation",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "DataModelRevision", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
		{ID: 0x0001, Name: "VendorName", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead},
		{ID: 0x0002, Name: "VendorID", TypeRef: schema.Scalar(schema.TypeVendorID), Access: schema.AccessRead},
		{ID: 0x0003, Name: "ProductName", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead},
		{ID: 0x0004, Name: "ProductID", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
		{ID: 0x0005, Name: "NodeLabel", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead | schema.AccessWrite | schema.AccessReport},
		{ID: 0x0006, Name: "Location", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0007, Name: "HardwareVersion", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
		{ID: 0x0008, Name: "HardwareVersionString", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead},
		{ID: 0x0009, Name: "SoftwareVersion", TypeRef: schema.Scalar(schema.TypeUint32), Access: schema.AccessRead},
		{ID: 0x000A, Name: "SoftwareVersionString", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead},
		{ID: 0x000F, Name: "SerialNumber", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead},
		{ID: 0x0010, Name: "LocalConfigDisabled", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0011, Name: "Reachable", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x0012, Name: "UniqueID", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "StartUp", Priority: schema.PriorityCritical, Fields: []schema.FieldDef{
			{ID: 0, Name: "softwareVersion", TypeRef: schema.Scalar(schema.TypeUint32)},
		}},
		{ID: 0x01, Name: "ShutDown", Priority: schema.PriorityCritical},
		{ID: 0x02, Name: "Leave", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "fabricIndex", TypeRef: schema.Scalar(schema.TypeFabricIndex)},
		}},
		{ID: 0x03, Name: "ReachableChanged", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "reachableNewValue", TypeRef: schema.Scalar(schema.TypeBool)},
		}},
	},
}
