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

// RaiseAlarm records a new alarm for an existing vehicle.
// An empty severity defaults to medium. Alarms are never deduplicated.
func (s *Service) RaiseAlarm(ctx context.Context, vehicleID, cause string, severity model.AlarmSeverity) (*model.Alarm, error) {
	if _, err := s.vehicle.Get(ctx, vehicleID); err != nil {
		return nil, err
	}
	return s.raise(ctx, vehicleID, cause, severity)
}

func (s *Service) raise(ctx context.Context, vehicleID, cause string, severity model.AlarmSeverity) (*model.Alarm, error) {
	cause = strings.TrimSpace(cause)
	if cause == "" {
		return nil, util.Validationf("alarm cause must not be empty")
	}
	if severity == "" {
		severity = model.AlarmSeverityMedium
	}
	if !severity.Valid() {
		return nil, util.Validationf("unknown alarm severity %q", severity)
	}

	now := s.now()
	a := &model.Alarm{
		ID:        s.newID(),
		VehicleID: vehicleID,
		Cause:     cause,
		Severity:  severity,
		State:     model.AlarmStateNew,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.alarm.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create alarm: %w", err)
	}

	metrics.AlarmsRaised.WithLabelValues(string(severity)).Inc()
	log.FromContext(ctx).Info("Alarm raised", "id", a.ID, "vehicleID", vehicleID, "cause", cause)
	return a, nil
}

// ListAlarms returns every alarm, newest first, joined with its vehicle's plate.
func (s *Service) ListAlarms(ctx context.Context) ([]*model.AlarmView, error) {
	alarms, err := s.alarm.List(ctx)
	if err != nil {
		return nil, err
	}

	vehicles, err := s.vehicle.List(ctx)
	if err != nil {
		return nil, err
	}

	plates := make(map[string]string, len(vehicles))
	for _, v := range vehicles {
		plates[v.ID] = v.Plate
	}

	views := make([]*model.AlarmView, 0, len(alarms))
	for _, a := range alarms {
		views = append(views, &model.AlarmView{Alarm: *a, Plate: plates[a.VehicleID]})
	}

	return views, nil
}

// TransitionAlarm moves an alarm to target on behalf of who.
// Allowed moves: new -> in-handling, new -> resolved, in-handling -> resolved.
// Resolving an alarm re-derives the status of its vehicle; failures of that
// step are logged and do not undo the transition.
func (s *Service) TransitionAlarm(ctx context.Context, id string, target model.AlarmState, who model.Identity) (*model.Alarm, error) {
	a, err := s.alarm.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	event, ok := alarmEvents[target]
	if !ok {
		switch target {
		case model.AlarmStateNew:
			return nil, util.Validationf("cannot move alarm from %s to %s", a.State, target)
		default:
			return nil, util.Validationf("unknown alarm state %q", target)
		}
	}

	from := a.State
	m := newAlarmMachine(a)
	if !m.Can(event) {
		return nil, util.Validationf("cannot move alarm from %s to %s", from, target)
	}

	if err := m.Event(ctx, event, s.now(), who.Subject); err != nil {
		return nil, util.Validationf("cannot move alarm from %s to %s: %v", from, target, err)
	}

	if err := s.alarm.UpdateState(ctx, a, from); err != nil {
		return nil, err
	}

	metrics.AlarmTransitions.WithLabelValues(string(a.State)).Inc()
	logger := log.FromContext(ctx).WithValues("id", a.ID, "vehicleID", a.VehicleID)
	logger.Info("Alarm transitioned", "from", from, "to", a.State, "by", who.Subject)

	if a.State == model.AlarmStateResolved {
		if _, err := s.DeriveVehicleStatus(ctx, a.VehicleID); err != nil {
			if errors.Is(err, util.ErrNotFound) {
				logger.Warn("Resolved alarm references a missing vehicle")
			} else {
				logger.Error(err, "Failed to derive vehicle status after resolution")
			}
		}
	}

	return a, nil
}
