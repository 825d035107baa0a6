package clusters

import "matter-go-home/internal/schema"

var DoorLock = schema.ClusterDef{
	ID:   0x0101,
	Name: "DoorLock",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "LockState", TypeRef: schema.NullableScalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x0001, Name: "LockType", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0002, Name: "ActuatorEnabled", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead},
		{ID: 0x0003, Name: "DoorState", TypeRef: schema.NullableScalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x0021, Name: "Language", TypeRef: schema.Scalar(schema.TypeCharString), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0023, Name: "AutoRelockTime", TypeRef: schema.Scalar(schema.TypeUint32), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0024, Name: "SoundVolume", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0025, Name: "OperatingMode", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0029, Name: "EnableOneTouchLocking", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x002B, Name: "EnablePrivacyModeButton", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0030, Name: "WrongCodeEntryLimit", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0031, Name: "UserCodeTemporaryDisableTime", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0033, Name: "RequirePINforRemoteOperation", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessWrite},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "LockDoor", Direction: schema.DirectionToServer},
		{ID: 0x01, Name: "UnlockDoor", Direction: schema.DirectionToServer},
		{ID: 0x03, Name: "UnlockWithTimeout", Direction: schema.DirectionToServer},
	},
	Structs: []schema.StructDef{
		{Name: "CredentialStruct", Fields: []schema.FieldDef{
			{ID: 0, Name: "credentialType", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 1, Name: "credentialIndex", TypeRef: schema.Scalar(schema.TypeUint16)},
		}},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "DoorLockAlarm", Priority: schema.PriorityCritical, Fields: []schema.FieldDef{
			{ID: 0, Name: "alarmCode", TypeRef: schema.Scalar(schema.TypeEnum8)},
		}},
		{ID: 0x01, Name: "DoorStateChange", Priority: schema.PriorityCritical, Fields: []schema.FieldDef{
			{ID: 0, Name: "doorState", TypeRef: schema.Scalar(schema.TypeEnum8)},
		}},
		{ID: 0x02, Name: "LockOperation", Priority: schema.PriorityCritical, Fields: []schema.FieldDef{
			{ID: 0, Name: "lockOperationType", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 1, Name: "operationSource", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 2, Name: "userIndex", TypeRef: schema.NullableScalar(schema.TypeUint16)},
			{ID: 3, Name: "fabricIndex", TypeRef: schema.NullableScalar(schema.TypeFabricIndex)},
			{ID: 4, Name: "sourceNode", TypeRef: schema.NullableScalar(schema.TypeNodeID)},
			{ID: 5, Name: "credentials", TypeRef: schema.ListOfStruct("CredentialStruct").OrNull(), Optional: true},
		}},
		{ID: 0x03, Name: "LockOperationError", Priority: schema.PriorityCritical, Fields: []schema.FieldDef{
			{ID: 0, Name: "lockOperationType", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 1, Name: "operationSource", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 2, Name: "operationError", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 3, Name: "userIndex", TypeRef: schema.NullableScalar(schema.TypeUint16)},
			{ID: 4, Name: "fabricIndex", TypeRef: schema.NullableScalar(schema.TypeFabricIndex)},
			{ID: 5, Name: "sourceNode", TypeRef: schema.NullableScalar(schema.TypeNodeID)},
			{ID: 6, Name: "credentials", TypeRef: schema.ListOfStruct("CredentialStruct").OrNull(), Optional: true},
		}},
		{ID: 0x04, Name: "LockUserChange", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "lockDataType", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 1, Name: "dataOperationType", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 2, Name: "operationSource", TypeRef: schema.Scalar(schema.TypeEnum8)},
			{ID: 3, Name: "userIndex", TypeRef: schema.NullableScalar(schema.TypeUint16)},
			{ID: 4, Name: "fabricIndex", TypeRef: schema.NullableScalar(schema.TypeFabricIndex)},
			{ID: 5, Name: "sourceNode", TypeRef: schema.NullableScalar(schema.TypeNodeID)},
			{ID: 6, Name: "dataIndex", TypeRef: schema.NullableScalar(schema.TypeUint16)},
		}},
	},
}
