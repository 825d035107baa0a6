package clusters

import "matter-go-home/internal/schema"

var Thermostat = schema.ClusterDef{
	ID:   0x0201,
	Name: "Thermostat",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "LocalTemperature", TypeRef: schema.NullableScalar(schema.TypeInt16), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x0003, Name: "AbsMinHeatSetpointLimit", TypeRef: schema.Scalar(schema.TypeInt16), Access: schema.AccessRead},
		{ID: 0x0004, Name: "AbsMaxHeatSetpointLimit", TypeRef: schema.Scalar(schema.TypeInt16), Access: schema.AccessRead},
		{ID: 0x0011, Name: "OccupiedCoolingSetpoint", TypeRef: schema.Scalar(schema.TypeInt16), Access: schema.AccessRead | schema.AccessWrite | schema.AccessReport},
		{ID: 0x0012, Name: "OccupiedHeatingSetpoint", TypeRef: schema.Scalar(schema.TypeInt16), Access: schema.AccessRead | schema.AccessWrite | schema.AccessReport},
		{ID: 0x0015, Name: "MinHeatSetpointLimit", TypeRef: schema.Scalar(schema.TypeInt16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0016, Name: "MaxHeatSetpointLimit", TypeRef: schema.Scalar(schema.TypeInt16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x001B, Name: "ControlSequenceOfOperation", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x001C, Name: "SystemMode", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessWrite | schema.AccessReport},
		{ID: 0x001E, Name: "ThermostatRunningMode", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "SetpointRaiseLower", Direction: schema.DirectionToServer},
	},
}
