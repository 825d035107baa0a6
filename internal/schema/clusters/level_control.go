package clusters

import "matter-go-home/internal/schema"

var LevelControl = schema.ClusterDef{
	ID:   0x0008,
	Name: "LevelControl",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "CurrentLevel", TypeRef: schema.NullableScalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessReport},
		{ID: 0x0001, Name: "RemainingTime", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead},
		{ID: 0x0002, Name: "MinLevel", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead},
		{ID: 0x0003, Name: "MaxLevel", TypeRef: schema.Scalar(schema.TypeUint8), Access: schema.AccessRead},
		{ID: 0x000F, Name: "Options", TypeRef: schema.Scalar(schema.TypeBitmap8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0010, Name: "OnOffTransitionTime", TypeRef: schema.Scalar(schema.TypeUint16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0011, Name: "OnLevel", TypeRef: schema.NullableScalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0012, Name: "OnTransitionTime", TypeRef: schema.NullableScalar(schema.TypeUint16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0013, Name: "OffTransitionTime", TypeRef: schema.NullableScalar(schema.TypeUint16), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x0014, Name: "DefaultMoveRate", TypeRef: schema.NullableScalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
		{ID: 0x4000, Name: "StartUpCurrentLevel", TypeRef: schema.NullableScalar(schema.TypeUint8), Access: schema.AccessRead | schema.AccessWrite},
	},
	Commands: []schema.CommandDef{
		{ID: 0x00, Name: "MoveToLevel", Direction: schema.DirectionToServer},
		{ID: 0x01, Name: "Move", Direction: schema.DirectionToServer},
		{ID: 0x02, Name: "Step", Direction: schema.DirectionToServer},
		{ID: 0x03, Name: "Stop", Direction: schema.DirectionToServer},
		{ID: 0x04, Name: "MoveToLevelWithOnOff", Direction: schema.DirectionToServer},
		{ID: 0x05, Name: "MoveWithOnOff", Direction: schema.DirectionToServer},
		{ID: 0x06, Name: "StepWithOnOff", Direction: schema.DirectionToServer},
		{ID: 0x07, Name: "StopWithOnOff", Direction: schema.DirectionToServer},
	},
}
