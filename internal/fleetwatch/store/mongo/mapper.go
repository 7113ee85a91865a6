package mongo

import (
	"time"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
)

type positionDoc struct {
	Lat float64 `bson:"lat"`
	Lng float64 `bson:"lng"`
}

type vehicleDoc struct {
	ID            string      `bson:"_id"`
	Plate         string      `bson:"plate"`
	DriverName    string      `bson:"driver_name"`
	DriverContact string      `bson:"driver_contact"`
	Status        string      `bson:"status"`
	FuelLevel     float64     `bson:"fuel_level"`
	Speed         float64     `bson:"speed"`
	Position      positionDoc `bson:"position"`
	LastUpdate    time.Time   `bson:"last_update,omitempty"`
	CreatedAt     time.Time   `bson:"created_at"`
}

type alarmDoc struct {
	ID         string     `bson:"_id"`
	VehicleID  string     `bson:"vehicle_id"`
	Cause      string     `bson:"cause"`
	Severity   string     `bson:"severity"`
	State      string     `bson:"state"`
	CreatedAt  time.Time  `bson:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at"`
	UpdatedBy  string     `bson:"updated_by,omitempty"`
	ResolvedAt *time.Time `bson:"resolved_at,omitempty"`
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	Role         string    `bson:"role"`
	CreatedAt    time.Time `bson:"created_at"`
}

func toVehicleDoc(v *model.Vehicle) *vehicleDoc {
	return &vehicleDoc{
		ID:            v.ID,
		Plate:         v.Plate,
		DriverName:    v.DriverName,
		DriverContact: v.DriverContact,
		Status:        string(v.Status),
		FuelLevel:     v.FuelLevel,
		Speed:         v.Speed,
		Position:      positionDoc{Lat: v.Position.Lat, Lng: v.Position.Lng},
		LastUpdate:    v.LastUpdate,
		CreatedAt:     v.CreatedAt,
	}
}

func (d *vehicleDoc) toModel() *model.Vehicle {
	return &model.Vehicle{
		ID:            d.ID,
		Plate:         d.Plate,
		DriverName:    d.DriverName,
		DriverContact: d.DriverContact,
		Status:        model.VehicleStatus(d.Status),
		FuelLevel:     d.FuelLevel,
		Speed:         d.Speed,
		Position:      model.Position{Lat: d.Position.Lat, Lng: d.Position.Lng},
		LastUpdate:    d.LastUpdate,
		CreatedAt:     d.CreatedAt,
	}
}

func toAlarmDoc(a *model.Alarm) *alarmDoc {
	return &alarmDoc{
		ID:         a.ID,
		VehicleID:  a.VehicleID,
		Cause:      a.Cause,
		Severity:   string(a.Severity),
		State:      string(a.State),
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
		UpdatedBy:  a.UpdatedBy,
		ResolvedAt: a.ResolvedAt,
	}
}

func (d *alarmDoc) toModel() *model.Alarm {
	return &model.Alarm{
		ID:         d.ID,
		VehicleID:  d.VehicleID,
		Cause:      d.Cause,
		Severity:   model.AlarmSeverity(d.Severity),
		State:      model.AlarmState(d.State),
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
		UpdatedBy:  d.UpdatedBy,
		ResolvedAt: d.ResolvedAt,
	}
}

func toUserDoc(u *model.User) *userDoc {
	return &userDoc{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		CreatedAt:    u.CreatedAt,
	}
}

func (d *userDoc) toModel() *model.User {
	return &model.User{
		ID:           d.ID,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		CreatedAt:    d.CreatedAt,
	}
}
