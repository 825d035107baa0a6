package clusters

import "matter-go-home/internal/schema"

var BooleanState = schema.ClusterDef{
	ID:   0x0045,
	Name: "BooleanState",
	Attributes: []schema.AttributeDef{
		{ID: 0x0000, Name: "StateValue", TypeRef: schema.Scalar(schema.TypeBool), Access: schema.AccessRead | schema.AccessReport},
	},
	Events: []schema.EventDef{
		{ID: 0x00, Name: "StateChange", Priority: schema.PriorityInfo, Fields: []schema.FieldDef{
			{ID: 0, Name: "stateValue", TypeRef: schema.Scalar(schema.TypeBool)},
		}},
	},
}
