package model

import "time"

// AlarmSeverity classifies an alarm.
type AlarmSeverity string

const (
	AlarmSeverityMinor  AlarmSeverity = "minor"
	AlarmSeverityMedium AlarmSeverity = "medium"
	AlarmSeverityMajor  AlarmSeverity = "major"
)

// Valid reports whether s is a known severity.
func (s AlarmSeverity) Valid() bool {
	switch s {
	case AlarmSeverityMinor, AlarmSeverityMedium, AlarmSeverityMajor:
		return true
	}
	return false
}

// AlarmState is the lifecycle state of an alarm.
type AlarmState string

const (
	AlarmStateNew        AlarmState = "new"
	AlarmStateInHandling AlarmState = "in-handling"
	AlarmStateResolved   AlarmState = "resolved"
)

// Open reports whether an alarm in state s still keeps its vehicle in alarm.
func (s AlarmState) Open() bool {
	return s == AlarmStateNew || s == AlarmStateInHandling
}

// Alarm is an anomaly raised for a vehicle.
type Alarm struct {
	ID        string        `json:"id"`
	VehicleID string        `json:"vehicleId"`
	Cause     string        `json:"cause"`
	Severity  AlarmSeverity `json:"severity"`
	State     AlarmState    `json:"state"`

	// CreatedAt never changes after the alarm is raised.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt and UpdatedBy record the last lifecycle transition.
	UpdatedAt time.Time `json:"updatedAt"`
	UpdatedBy string    `json:"updatedBy,omitempty"`

	// ResolvedAt is set when the alarm enters the resolved state.
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
}

// AlarmView is an alarm joined with the plate of its vehicle.
// Plate is empty when the vehicle no longer exists.
type AlarmView struct {
	Alarm
	Plate string `json:"plate"`
}

// AlarmEvent is pushed to connected operators when an alarm is raised.
type AlarmEvent struct {
	AlarmID string `json:"alarmId"`
	Plate   string `json:"plate"`
	Message string `json:"message"`
}
