package clusters

import "matter-go-home/internal/schema"

var alarmSeverity = []schema.FieldDef{
	{ID: 0, Name: "alarmSeverityLevel", TypeRef: schema.Scalar(schema.TypeEnum8)},
}

var SmokeCoAlarm = schema.ClusterDef{
	ID:   0x005C,
	Name: "SmokeCoAlarm",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "ExpressedState", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x0001, Name: "SmokeState", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0002, Name: "COState", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0003, Name: "BatteryAlert", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0004, Name: "DeviceMuted", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0005, Name: "TestInProgress", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead},
		{ID: 0x0006, Name: "HardwareFaultAlert", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead},
		{ID: 0x0007, Name: "EndOfServiceAlert", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0008, Name: "InterconnectSmokeAlarm", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0009, Name: "InterconnectCOAlarm", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x000A, Name: "ContaminationState", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x000B, Name: "SmokeSensitivityLevel", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x000C, Name: "ExpiryDate", TypeRef: schema.Scalar(schema.TypeUint32), Access: schema.AccessRead},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "SelfTestRequest", Direction: schema.DirectionToServer},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "SmokeAlarm", Priority: schema.PriorityCritical, Fields: alarmSeverity},
		{ID: 0x01, Name: "COAlarm", Priority: schema.PriorityCritical, Fields: alarmSeverity},
		{ID: 0x02, Name: "LowBattery", Priority: schema.PriorityInfo, Fields: alarmSeverity},
		{ID: 0x03, Name: "HardwareFault", Priority: schema.PriorityInfo},
		{ID: 0x04, Name: "EndOfService", Priority: schema.PriorityInfo},
		{ID: 0x05, Name: "SelfTestComplete", Priority: schema.PriorityInfo},
		{ID: 0x06, Name: "AlarmMuted", Priority: schema.PriorityInfo},
		{ID: 0x07, Name: "MuteEnded", Priority: schema.PriorityInfo},
		{ID: 0x08, Name: "InterconnectSmokeAlarm", Priority: schema.PriorityCritical, Fields: alarmSeverity},
		{ID: 0x09, Name: "InterconnectCOAlarm", Priority: schema.PriorityCritical, Fields: alarmSeverity},
		{ID: 0x0A, Name: "AllClear", Priority: schema.PriorityInfo},
	},
}
