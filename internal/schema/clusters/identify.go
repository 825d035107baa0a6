package clusters

import "matter-go-home/internal/schema"

var Identify = schema.ClusterDef{
	ID:   0x0003,
	Name: "Identify",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "IdentifyTime", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0001, Name: "IdentifyType", TypeRef: schema.Scalar(schema.TypeEnum8), Access: schema.AccessRead},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "Identify", Direction: schema.DirectionToServer},
		{ID: 0x40, Name: "TriggerEffect", Direction: schema.DirectionToServer},
	},
}
