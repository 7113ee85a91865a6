// Package memory is an in-process storage backend. It keeps no data across
// restarts and serves single-node deployments and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
)

var _ core.Repository = (*Store)(nil)

// Store implements every repository port over maps guarded by one RWMutex.
// Records are copied on the way in and out.
type Store struct {
	mu       sync.RWMutex
	vehicles map[string]*model.Vehicle
	alarms   map[string]*model.Alarm
	users    map[string]*model.User
}

func New() *Store {
	return &Store{
		vehicles: map[string]*model.Vehicle{},
		alarms:   map[string]*model.Alarm{},
		users:    map[string]*model.User{},
	}
}

func (s *Store) Vehicle() core.VehicleRepository { return (*vehicleRepo)(s) }
func (s *Store) Alarm() core.AlarmRepository     { return (*alarmRepo)(s) }
func (s *Store) User() core.UserRepository       { return (*userRepo)(s) }

func (s *Store) Ping(context.Context) error  { return nil }
func (s *Store) Close(context.Context) error { return nil }

type vehicleRepo Store

func (r *vehicleRepo) Create(_ context.Context, v *model.Vehicle) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.vehicles[v.ID]; ok {
		return util.Conflictf("vehicle %s already exists", v.ID)
	}
	if r.plateTaken(v.Plate, "") {
		return util.Conflictf("plate %s is already registered", v.Plate)
	}

	c := *v
	r.vehicles[v.ID] = &c
	return nil
}

func (r *vehicleRepo) Get(_ context.Context, id string) (*model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.vehicles[id]
	if !ok {
		return nil, util.NotFoundf("vehicle %s not found", id)
	}
	c := *v
	return &c, nil
}

func (r *vehicleRepo) GetByPlate(_ context.Context, plate string) (*model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, v := range r.vehicles {
		if v.Plate == plate {
			c := *v
			return &c, nil
		}
	}
	return nil, util.NotFoundf("vehicle with plate %s not found", plate)
}

func (r *vehicleRepo) List(_ context.Context) ([]*model.Vehicle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Vehicle, 0, len(r.vehicles))
	for _, v := range r.vehicles {
		c := *v
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *vehicleRepo) Update(_ context.Context, id string, u *model.VehicleUpdate) (*model.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[id]
	if !ok {
		return nil, util.NotFoundf("vehicle %s not found", id)
	}
	if u.Plate != nil && r.plateTaken(*u.Plate, id) {
		return nil, util.Conflictf("plate %s is already registered", *u.Plate)
	}

	if u.Plate != nil {
		v.Plate = *u.Plate
	}
	if u.DriverName != nil {
		v.DriverName = *u.DriverName
	}
	if u.DriverContact != nil {
		v.DriverContact = *u.DriverContact
	}

	c := *v
	return &c, nil
}

func (r *vehicleRepo) ApplyTelemetry(_ context.Context, id string, t *model.TelemetryUpdate) (*model.Vehicle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[id]
	if !ok {
		return nil, util.NotFoundf("vehicle %s not found", id)
	}

	v.Position = t.Position
	v.Speed = t.Speed
	v.FuelLevel = t.FuelLevel
	v.Status = t.Status
	v.LastUpdate = t.LastUpdate

	c := *v
	return &c, nil
}

func (r *vehicleRepo) SetStatus(_ context.Context, id string, status model.VehicleStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.vehicles[id]
	if !ok {
		return util.NotFoundf("vehicle %s not found", id)
	}
	v.Status = status
	return nil
}

func (r *vehicleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.vehicles, id)
	return nil
}

// plateTaken must be called with the lock held.
func (r *vehicleRepo) plateTaken(plate, exceptID string) bool {
	for id, v := range r.vehicles {
		if id != exceptID && v.Plate == plate {
			return true
		}
	}
	return false
}

type alarmRepo Store

func (r *alarmRepo) Create(_ context.Context, a *model.Alarm) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.alarms[a.ID]; ok {
		return util.Conflictf("alarm %s already exists", a.ID)
	}
	r.alarms[a.ID] = copyAlarm(a)
	return nil
}

func (r *alarmRepo) Get(_ context.Context, id string) (*model.Alarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.alarms[id]
	if !ok {
		return nil, util.NotFoundf("alarm %s not found", id)
	}
	return copyAlarm(a), nil
}

func (r *alarmRepo) List(_ context.Context) ([]*model.Alarm, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.Alarm, 0, len(r.alarms))
	for _, a := range r.alarms {
		out = append(out, copyAlarm(a))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return strings.Compare(out[i].ID, out[j].ID) > 0
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *alarmRepo) UpdateState(_ context.Context, a *model.Alarm, from model.AlarmState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.alarms[a.ID]
	if !ok {
		return util.NotFoundf("alarm %s not found", a.ID)
	}
	if stored.State != from {
		return util.Conflictf("alarm %s changed state concurrently", a.ID)
	}

	stored.State = a.State
	stored.UpdatedAt = a.UpdatedAt
	stored.UpdatedBy = a.UpdatedBy
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		stored.ResolvedAt = &t
	}
	return nil
}

func (r *alarmRepo) CountOpen(_ context.Context, vehicleID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, a := range r.alarms {
		if a.VehicleID == vehicleID && a.State.Open() {
			n++
		}
	}
	return n, nil
}

func (r *alarmRepo) DeleteByVehicle(_ context.Context, vehicleID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, a := range r.alarms {
		if a.VehicleID == vehicleID {
			delete(r.alarms, id)
		}
	}
	return nil
}

func copyAlarm(a *model.Alarm) *model.Alarm {
	c := *a
	if a.ResolvedAt != nil {
		t := *a.ResolvedAt
		c.ResolvedAt = &t
	}
	return &c
}

type userRepo Store

func (r *userRepo) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == u.Email {
			return util.Conflictf("email %s is already registered", u.Email)
		}
	}
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, util.NotFoundf("user %s not found", email)
}
