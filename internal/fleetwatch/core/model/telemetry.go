package model

// TelemetryReading is a single report from a vehicle.
type TelemetryReading struct {
	Plate     string   `json:"plate"`
	Position  Position `json:"position"`
	Speed     float64  `json:"speed"`
	FuelLevel float64  `json:"fuelLevel"`

	// FaultDescription is empty for a healthy reading.
	FaultDescription string `json:"faultDescription,omitempty"`
}

// IngestResult is returned after a reading has been applied.
type IngestResult struct {
	Status VehicleStatus `json:"status"`

	// AlarmID is set when the reading raised an alarm.
	AlarmID string `json:"alarmId,omitempty"`
}
