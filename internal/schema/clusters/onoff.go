package clusters

import "matter-go-home/internal/schema"

var OnOff = schema.ClusterDef{
	ID:   0x0006,
	Name: "OnOff",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "OnOff", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x4000, Name: "GlobalSceneControl", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead},
		{ID: 0x4001, Name: "OnTime", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x4002, Name: "OffWaitTime", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x4003, Name: "StartUpOnOff", TypeRef: schema.NullableScalar(schema.TypeEnum8), Access: schema.AccessRead | schema.AccessWrite},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "Off", Direction: schema.DirectionToServer},
		{ID: 0x01, Name: "On", Direction: schema.DirectionToServer},
		{ID: 0x02, Name: "Toggle", Direction: schema.DirectionToServer},
		{ID: 0x40, Name: "OffWithEffect", Direction: schema.DirectionToServer},
		{ID: 0x41, Name: "OnWithRecallGlobalScene", Direction: schema.DirectionToServer},
		{ID: 0x42, Name: "OnWithTimedOff", Direction: schema.DirectionToServer},
	},
}
