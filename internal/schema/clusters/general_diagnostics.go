package clusters

import "matter-go-home/internal/schema"

var faultChangeFields = []schema.FieldDef{
	{ID: 0, Name: "current", TypeRef: schema.ListOf(schema.TypeEnum8)},
	{ID: 1, Name: "previous", TypeRef: schema.ListOf(schema.TypeEnum8)},
}

var GeneralDiagnostics = schema.ClusterDef{
	ID:   0x0033,
	Name: "GeneralDiagnostics",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "NetworkInterfaces", TypeRef: schema.ListOfStruct("NetworkInterface"), Access: schema.AccessRead},
		{ID: 0x0001, Name: "RebootCount", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
		{ID: 0x0002, Name: "UpTime", TypeRef: schema.Scalar(schema.TypeUint64), Access: schema.AccessRead},
		{ID: 0x0003, Name: "TotalOperationalHours", TypeRef: schema.Scalar(schema.TypeUint32), Access: schema.AccessRead},
		{ID: 0x0004, Name: "BootReason", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0005, Name: "ActiveHardwareFaults", TypeRef: schema.ListOf(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0006, Name: "ActiveRadioFaults", TypeRef: schema.ListOf(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0007, Name: "ActiveNetworkFaults", TypeRef: schema.ListOf(schema.TypeEnum8), Access: schema.AccessRead},
		{ID: 0x0008, Name: "TestEventTriggersEnabled", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "TestEventTrigger", Direction: schema.DirectionToServer},
		{ID: 0x01, Name: "TimeSnapshot", Direction: schema.DirectionToServer},
	},
	Structs: []schema.StructDef{
		{Name: "NetworkInterface", Fields: []schema.FieldDef{
			{ID: 0, Name: "name", TypeRef: schema.Scalar(schema.TypeCharString)},
			{ID: 1, Name: "isOperational", TypeRef: schema.Scalar(schema.TypeBool)},
			{ID: 2, Name: "offPremiseServicesReachableIPv4", TypeRef: schema.NullableScalar(schema.TypeBool)},
			{ID: 3, Name: "offPremiseServicesReachableIPv6", TypeRef: schema.NullableScalar(schema.TypeBool)},
			{ID: 4, Name: "hardwareAddress", TypeRef: schema.Scalar(schema.TypeOctetString)},
			{ID: 5, Name: "IPv4Addresses", TypeRef: schema.ListOf(schema.TypeOctetString)},
			{ID: 6, Name: "IPv6Addresses", TypeRef: schema.ListOf(schema.TypeOctetString)},
			{ID: 7, Name: "type", TypeRef: schema.Scalar(schema.TypeEnum8)},
		}},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "HardwareFaultChange", Priority: schema.PriorityCritical, Fields: faultChangeFields},
		{ID: 0x01, Name: "RadioFaultChange", Priority: schema.PriorityCritical, Fields: faultChangeFields},
		{ID: 0x02, Name: "NetworkFaultChange", Priority: schema.PriorityCritical, Fields: faultChangeFields},
		{ID: 0x03, Name: "BootReason", Priority: schema.PriorityCritical, Fields: []schema.FieldDef{
			{ID: 0, Name: "bootReason", TypeRef: schema.Scalar(schema.TypeEnum8)},
		}},
	},
}
