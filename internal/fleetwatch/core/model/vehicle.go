package model

import "time"

// VehicleStatus is derived by the server from telemetry and open alarms.
type VehicleStatus string

const (
	VehicleStatusMoving  VehicleStatus = "moving"
	VehicleStatusStopped VehicleStatus = "stopped"
	VehicleStatusAlarm   VehicleStatus = "alarm"
)

// Position is a WGS84 coordinate pair.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Vehicle represents a monitored vehicle.
// It is decoupled from the storage document layout.
type Vehicle struct {
	// ID is the time-ordered unique identifier assigned at registration.
	ID string `json:"id"`

	// Plate is the registration plate, unique across the fleet.
	Plate string `json:"plate"`

	DriverName    string `json:"driverName"`
	DriverContact string `json:"driverContact"`

	Status VehicleStatus `json:"status"`

	// FuelLevel and Speed are stored as reported; no range is enforced.
	FuelLevel float64  `json:"fuelLevel"`
	Speed     float64  `json:"speed"`
	Position  Position `json:"position"`

	// LastUpdate is the time of the last applied reading, zero before the first one.
	LastUpdate time.Time `json:"lastUpdate"`
	CreatedAt  time.Time `json:"createdAt"`
}

// MotionStatus returns moving when speed is positive, stopped otherwise.
func MotionStatus(speed float64) VehicleStatus {
	if speed > 0 {
		return VehicleStatusMoving
	}
	return VehicleStatusStopped
}

// VehicleUpdate is a partial update of the operator-editable fields.
// Nil fields are left untouched.
type VehicleUpdate struct {
	Plate         *string
	DriverName    *string
	DriverContact *string

	// Status is never writable; a non-nil value is rejected.
	Status *VehicleStatus
}

// Empty reports whether the update changes nothing.
func (u *VehicleUpdate) Empty() bool {
	return u.Plate == nil && u.DriverName == nil && u.DriverContact == nil && u.Status == nil
}

// TelemetryUpdate carries the fields written by a single reading.
type TelemetryUpdate struct {
	Position   Position
	Speed      float64
	FuelLevel  float64
	Status     VehicleStatus
	LastUpdate time.Time
}
