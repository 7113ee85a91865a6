package paths

// Topic segments of the fleet telemetry protocol: {root}/{segment}/{plate}.

// Upstream: field gateway -> server
const (
	// Telemetry carries one reading per message.
	// Payload: { "position": {"lat": .., "lng": ..}, "speed": .., "fuelLevel": .., "faultDescription": ".." }
	// Pattern: {root}/telemetry/{plate}
	Telemetry = "telemetry"
)

// Downstream: server -> subscribers
const (
	// Alarm announces a newly raised alarm.
	// Payload: { "alarmId": "..", "plate": "..", "message": ".." }
	// Pattern: {root}/alarm/{plate}
	Alarm = "alarm"
)

// GroupServer is the shared subscription group of fleetwatch server replicas.
const GroupServer = "fleetwatch"
