package clusters

import "matter-go-home/internal/schema"

var AccessControl = schema.ClusterDef{
	ID:   0x001F,
	Name: "AccessControl",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "Acl", TypeRef: schema.ListOfStruct("AccessControlEntryStruct"), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0001, Name: "Extension", TypeRef: schema.ListOfStruct("AccessControlExtensionStruct"), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0002, Name: "SubjectsPerAccessControlEntry", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
		{ID: 0x0003, Name: "TargetsPerAccessControlEntry", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
		{ID: 0x0004, Name: "AccessControlEntriesPerFabric", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
	},
	Structs: []schema.StructDef{
		{Name: "AccessControlTargetStruct", Fields: []schema.FieldDef{
			{ID: 0, Name: "cluster", TypeRef: schema.NullableScalar(schema.TypeClusterID)},
			{ID: 1, Name: "endpoint", TypeRef: schema.NullableScalar(schema.TypeEndpointNo)},
			{ID: 2, Name: "deviceType", TypeRef: schema.NullableScalar(schema.TypeDeviceTypeID)},
		}},
		{Name: "AccessControlEntryStruct", Fields: []schema.FieldDef{
			{ID: 1, Name: "privilege", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 2, Name: "authMode", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 3, Name: "subjects", TypeRef: schema.ListOf(schema.TypeNodeID).OrNull()},
			{ID: 4, Name: "targets", TypeRef: schema.ListOfStruct("AccessControlTargetStruct").OrNull()},
			{ID: 254, Name: "fabricIndex", TypeRef: schema.Scalar(schema.TypeFabricIndex)},
		}},
		{Name: "AccessControlExtensionStruct", Fields: []schema.FieldDef{
			{ID: 1, Name: "data", TypeRef: schema.Scalar(schema.TypeOctetString)},
			{ID: 254, Name: "fabricIndex", TypeRef: schema.Scalar(schema.TypeFabricIndex)},
		}},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "AccessControlEntryChanged", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 1, Name: "adminNodeID", TypeRef: schema.NullableScalar(schema.TypeNodeID)},
			{ID: 2, Name: "adminPasscodeID", TypeRef: schema.NullableScalar(schema.TypeUint16)},
			{ID: 3, Name: "changeType", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 4, Name: "latestValue", TypeRef: schema.StructRef("AccessControlEntryStruct").OrNull()},
			{ID: 254, Name: "fabricIndex", TypeRef: schema.Scalar(schema.TypeFabricIndex)},
		}},
		{ID: 0x01, Name: "AccessControlExtensionChanged", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 1, Name: "adminNodeID", TypeRef: schema.NullableScalar(schema.TypeNodeID)},
			{ID: 2, Name: "adminPasscodeID", TypeRef: schema.NullableScalar(schema.TypeUint16)},
			{ID: 3, Name: "changeType", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 4, Name: "latestValue", TypeRef: schema.StructRef("AccessControlExtensionStruct").OrNull()},
			{ID: 254, Name: "fabricIndex", TypeRef: schema.Scalar(schema.TypeFabricIndex)},
		}},
	},
}
