package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/metrics"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

// IngestTelemetry applies a reading to the vehicle with the reading's plate.
//
// Position, speed and fuel are stored as reported. A fault description raises
// a medium alarm, which is announced before the vehicle is saved; the two
// writes are not atomic. Concurrent readings for one vehicle are applied
// last-write-wins.
func (s *Service) IngestTelemetry(ctx context.Context, r *model.TelemetryReading) (*model.IngestResult, error) {
	result, err := s.ingest(ctx, r)
	switch {
	case err == nil && result.AlarmID != "":
		metrics.TelemetryIngested.WithLabelValues("fault").Inc()
	case err == nil:
		metrics.TelemetryIngested.WithLabelValues("ok").Inc()
	case errors.Is(err, util.ErrNotFound):
		metrics.TelemetryIngested.WithLabelValues("not_found").Inc()
	case errors.Is(err, util.ErrValidation):
		metrics.TelemetryIngested.WithLabelValues("invalid").Inc()
	default:
		metrics.TelemetryIngested.WithLabelValues("error").Inc()
	}
	return result, err
}

func (s *Service) ingest(ctx context.Context, r *model.TelemetryReading) (*model.IngestResult, error) {
	if r == nil {
		return nil, util.Validationf("reading is required")
	}

	plate := strings.TrimSpace(r.Plate)
	if plate == "" {
		return nil, util.Validationf("plate is required")
	}

	v, err := s.vehicle.GetByPlate(ctx, plate)
	if err != nil {
		return nil, err
	}

	logger := log.FromContext(ctx).WithValues("plate", plate, "vehicleID", v.ID)
	result := &model.IngestResult{}

	fault := strings.TrimSpace(r.FaultDescription)
	status := model.MotionStatus(r.Speed)

	if fault != "" {
		a, err := s.raise(ctx, v.ID, fault, model.AlarmSeverityMedium)
		if err != nil {
			return nil, err
		}
		result.AlarmID = a.ID
		status = model.VehicleStatusAlarm

		s.announce(ctx, logger, &model.AlarmEvent{
			AlarmID: a.ID,
			Plate:   v.Plate,
			Message: fmt.Sprintf("Alarm detected: %s", fault),
		})
	} else if status, err = s.statusFor(ctx, v.ID, r.Speed); err != nil {
		return nil, err
	}

	updated, err := s.vehicle.ApplyTelemetry(ctx, v.ID, &model.TelemetryUpdate{
		Position:   r.Position,
		Speed:      r.Speed,
		FuelLevel:  r.FuelLevel,
		Status:     status,
		LastUpdate: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("save telemetry: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.MirrorVehicle(ctx, updated); err != nil {
			logger.Warn("Failed to mirror vehicle state", "error", err)
		}
	}

	logger.Debug("Telemetry applied", "status", status, "speed", r.Speed, "fuelLevel", r.FuelLevel)
	result.Status = status
	return result, nil
}

// announce hands the event to the notifier. Delivery problems never fail ingestion.
func (s *Service) announce(ctx context.Context, logger log.Logger, event *model.AlarmEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		logger.Warn("Alarm notification incomplete", "alarmID", event.AlarmID, "error", err)
	}
}
