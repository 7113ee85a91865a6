package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

const initialFuelLevel = 100

// RegisterVehicle adds a vehicle to the fleet.
// The vehicle starts stopped at the origin with a full tank.
func (s *Service) RegisterVehicle(ctx context.Context, plate, driverName, driverContact string) (*model.Vehicle, error) {
	plate = strings.TrimSpace(plate)
	driverName = strings.TrimSpace(driverName)
	driverContact = strings.TrimSpace(driverContact)

	if plate == "" || driverName == "" || driverContact == "" {
		return nil, util.Validationf("plate, driverName and driverContact are required")
	}

	v := &model.Vehicle{
		ID:            s.newID(),
		Plate:         plate,
		DriverName:    driverName,
		DriverContact: driverContact,
		Status:        model.VehicleStatusStopped,
		FuelLevel:     initialFuelLevel,
		Speed:         0,
		Position:      model.Position{},
		CreatedAt:     s.now(),
	}

	if err := s.vehicle.Create(ctx, v); err != nil {
		return nil, err
	}

	log.FromContext(ctx).Info("Vehicle registered", "id", v.ID, "plate", v.Plate)
	return v, nil
}

// GetVehicle returns the vehicle with the given ID.
func (s *Service) GetVehicle(ctx context.Context, id string) (*model.Vehicle, error) {
	return s.vehicle.Get(ctx, id)
}

// ListVehicles returns every vehicle in registration order.
func (s *Service) ListVehicles(ctx context.Context) ([]*model.Vehicle, error) {
	return s.vehicle.List(ctx)
}

// UpdateVehicle edits plate and driver data. The status is derived and can't be set.
func (s *Service) UpdateVehicle(ctx context.Context, id string, u *model.VehicleUpdate) (*model.Vehicle, error) {
	if u == nil || u.Empty() {
		return s.vehicle.Get(ctx, id)
	}

	if u.Status != nil {
		return nil, util.Validationf("status is derived from telemetry and alarms and cannot be set")
	}

	clean := &model.VehicleUpdate{}
	for _, f := range []struct {
		name string
		in   *string
		out  **string
	}{
		{"plate", u.Plate, &clean.Plate},
		{"driverName", u.DriverName, &clean.DriverName},
		{"driverContact", u.DriverContact, &clean.DriverContact},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return nil, util.Validationf("%s must not be empty", f.name)
		}
		*f.out = &v
	}

	return s.vehicle.Update(ctx, id, clean)
}

// RemoveVehicle deletes a vehicle together with its resolved alarms.
// A vehicle with open alarms cannot be removed. Removing an absent vehicle succeeds.
func (s *Service) RemoveVehicle(ctx context.Context, id string) error {
	if _, err := s.vehicle.Get(ctx, id); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil
		}
		return err
	}

	open, err := s.alarm.CountOpen(ctx, id)
	if err != nil {
		return fmt.Errorf("count open alarms: %w", err)
	}
	if open > 0 {
		return util.Conflictf("vehicle has %d open alarm(s); resolve them before removing it", open)
	}

	if err := s.alarm.DeleteByVehicle(ctx, id); err != nil {
		return fmt.Errorf("delete alarm history: %w", err)
	}
	if err := s.vehicle.Delete(ctx, id); err != nil {
		return err
	}

	log.FromContext(ctx).Info("Vehicle removed", "id", id)
	return nil
}

// DeriveVehicleStatus recomputes a vehicle's status from its open alarms and
// current speed and persists it when it changed.
func (s *Service) DeriveVehicleStatus(ctx context.Context, vehicleID string) (model.VehicleStatus, error) {
	v, err := s.vehicle.Get(ctx, vehicleID)
	if err != nil {
		return "", err
	}

	status, err := s.statusFor(ctx, vehicleID, v.Speed)
	if err != nil {
		return "", err
	}

	if status != v.Status {
		if err := s.vehicle.SetStatus(ctx, vehicleID, status); err != nil {
			return "", fmt.Errorf("set vehicle status: %w", err)
		}
	}

	return status, nil
}

// statusFor returns alarm while the vehicle owns an open alarm, its motion status otherwise.
func (s *Service) statusFor(ctx context.Context, vehicleID string, speed float64) (model.VehicleStatus, error) {
	open, err := s.alarm.CountOpen(ctx, vehicleID)
	if err != nil {
		return "", fmt.Errorf("count open alarms: %w", err)
	}
	if open > 0 {
		return model.VehicleStatusAlarm, nil
	}
	return model.MotionStatus(speed), nil
}
