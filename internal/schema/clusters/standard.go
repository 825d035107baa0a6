package clusters

import "matter-go-home/internal/schema"

// Standard lists every built-in cluster definition in ID order.
func Standard() []schema.ClusterDef {
	return []schema.ClusterDef{
		Identify,            // 0x0003
		OnOff,               // 0x0006
		LevelControl,        // 0x0008
		AccessControl,       // 0x001F
		BasicInformation,    // 0x0028
		GeneralDiagnostics,  // 0x0033
		SoftwareDiagnostics, // 0x0034
		Switch,              // 0x003B
		BooleanState,        // 0x0045
		SmokeCoAlarm,        // 0x005C
		DoorLock,            // 0x0101
		Thermostat,          // 0x0201
		UnitTesting,         // 0xFFF1FC05
	}
}
