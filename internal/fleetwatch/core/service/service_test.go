package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"k8s.io/utils/ptr"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/store/memory"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/auth"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
)

var epoch = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	events []model.AlarmEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, e *model.AlarmEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *e)
	return r.err
}

type recordingMirror struct {
	plates []string
}

func (m *recordingMirror) MirrorVehicle(_ context.Context, v *model.Vehicle) error {
	m.plates = append(m.plates, v.Plate)
	return errors.New("redis unavailable")
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *recordingNotifier
	tokens   *auth.TokenManager
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	var (
		tick int
		seq  int
	)
	clock := func() time.Time {
		tick++
		return epoch.Add(time.Duration(tick) * time.Second)
	}
	ids := func() string {
		seq++
		return fmt.Sprintf("id-%04d", seq)
	}

	f := &fixture{
		store:    memory.New(),
		notifier: &recordingNotifier{},
		tokens:   auth.NewTokenManager("0123456789abcdef", "fleetwatch", time.Hour),
	}

	opts = append([]Option{
		WithClock(clock),
		WithIDGenerator(ids),
		WithTokenIssuer(f.tokens),
		WithPasswordHasher(auth.NewHasher(bcrypt.MinCost)),
	}, opts...)
	f.svc = New(f.store, f.notifier, opts...)
	return f
}

func (f *fixture) vehicle(t *testing.T, plate string) *model.Vehicle {
	t.Helper()
	v, err := f.svc.RegisterVehicle(context.Background(), plate, "Mario Rossi", "+39 333 0000000")
	require.NoError(t, err)
	return v
}

func TestRegisterVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	v, err := f.svc.RegisterVehicle(ctx, "  AB123CD ", "Mario Rossi", "mario@example.com")
	require.NoError(t, err)
	assert.Equal(t, "AB123CD", v.Plate)
	assert.Equal(t, model.VehicleStatusStopped, v.Status)
	assert.Equal(t, float64(100), v.FuelLevel)
	assert.Zero(t, v.Speed)
	assert.Equal(t, model.Position{}, v.Position)

	_, err = f.svc.RegisterVehicle(ctx, "AB123CD", "Other", "other")
	assert.ErrorIs(t, err, util.ErrConflict)

	for _, tc := range [][3]string{{"", "a", "b"}, {"X", " ", "b"}, {"X", "a", ""}} {
		_, err := f.svc.RegisterVehicle(ctx, tc[0], tc[1], tc[2])
		assert.ErrorIs(t, err, util.ErrValidation, "%v", tc)
	}

	list, err := f.svc.ListVehicles(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestUpdateVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	got, err := f.svc.UpdateVehicle(ctx, v.ID, &model.VehicleUpdate{DriverContact: ptr.To(" +39 111 ")})
	require.NoError(t, err)
	assert.Equal(t, "+39 111", got.DriverContact)
	assert.Equal(t, "Mario Rossi", got.DriverName)

	_, err = f.svc.UpdateVehicle(ctx, v.ID, &model.VehicleUpdate{Status: ptr.To(model.VehicleStatusMoving)})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.UpdateVehicle(ctx, v.ID, &model.VehicleUpdate{Plate: ptr.To("  ")})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.UpdateVehicle(ctx, "missing", &model.VehicleUpdate{DriverName: ptr.To("x")})
	assert.ErrorIs(t, err, util.ErrNotFound)

	f.vehicle(t, "EF456GH")
	_, err = f.svc.UpdateVehicle(ctx, v.ID, &model.VehicleUpdate{Plate: ptr.To("EF456GH")})
	assert.ErrorIs(t, err, util.ErrConflict)

	same, err := f.svc.UpdateVehicle(ctx, v.ID, &model.VehicleUpdate{})
	require.NoError(t, err)
	assert.Equal(t, "AB123CD", same.Plate)
}

// A fault-free reading while no alarm is open derives the status from speed.
func TestIngestHealthyReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	res, err := f.svc.IngestTelemetry(ctx, &model.TelemetryReading{
		Plate: "AB123CD", Position: model.Position{Lat: 45.46, Lng: 9.19}, Speed: 50, FuelLevel: 70,
	})
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusMoving, res.Status)
	assert.Empty(t, res.AlarmID)

	got, err := f.svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.Position{Lat: 45.46, Lng: 9.19}, got.Position)
	assert.Equal(t, float64(50), got.Speed)
	assert.Equal(t, float64(70), got.FuelLevel)
	assert.Equal(t, model.VehicleStatusMoving, got.Status)
	assert.False(t, got.LastUpdate.IsZero())

	res, err = f.svc.IngestTelemetry(ctx, &model.TelemetryReading{Plate: "AB123CD", Speed: 0})
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusStopped, res.Status)

	assert.Empty(t, f.notifier.events)
}

// A faulty reading raises a medium alarm, announces it and puts the vehicle in alarm.
func TestIngestFaultyReading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	res, err := f.svc.IngestTelemetry(ctx, &model.TelemetryReading{
		Plate: "AB123CD", Speed: 30, FuelLevel: 50, FaultDescription: "  engine overheating ",
	})
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusAlarm, res.Status)
	require.NotEmpty(t, res.AlarmID)

	alarms, err := f.svc.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, alarms, 1)
	a := alarms[0]
	assert.Equal(t, res.AlarmID, a.ID)
	assert.Equal(t, v.ID, a.VehicleID)
	assert.Equal(t, "AB123CD", a.Plate)
	assert.Equal(t, "engine overheating", a.Cause)
	assert.Equal(t, model.AlarmSeverityMedium, a.Severity)
	assert.Equal(t, model.AlarmStateNew, a.State)

	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, model.AlarmEvent{
		AlarmID: res.AlarmID,
		Plate:   "AB123CD",
		Message: "Alarm detected: engine overheating",
	}, f.notifier.events[0])

	got, err := f.svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusAlarm, got.Status)
	assert.Equal(t, float64(30), got.Speed)

	// a healthy reading does not clear the alarm status while the alarm is open
	res, err = f.svc.IngestTelemetry(ctx, &model.TelemetryReading{Plate: "AB123CD", Speed: 40})
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusAlarm, res.Status)
}

func TestIngestRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	_, err := f.svc.IngestTelemetry(ctx, &model.TelemetryReading{Plate: "  "})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.IngestTelemetry(ctx, nil)
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.IngestTelemetry(ctx, &model.TelemetryReading{Plate: "ZZ999ZZ", Speed: 10, FaultDescription: "x"})
	assert.ErrorIs(t, err, util.ErrNotFound)

	alarms, err := f.svc.ListAlarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, alarms)

	got, err := f.svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, *v, *got)
}

func TestIngestSurvivesSinkFailures(t *testing.T) {
	mirror := &recordingMirror{}
	f := newFixture(t, WithStateMirror(mirror))
	f.notifier.err = errors.New("push backlog")
	f.vehicle(t, "AB123CD")

	res, err := f.svc.IngestTelemetry(context.Background(), &model.TelemetryReading{Plate: "AB123CD", FaultDescription: "brakes"})
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusAlarm, res.Status)
	assert.Equal(t, []string{"AB123CD"}, mirror.plates)
	assert.Len(t, f.notifier.events, 1)
}

func TestTransitionAlarm(t *testing.T) {
	tests := []struct {
		name    string
		path    []model.AlarmState
		target  model.AlarmState
		wantErr error
	}{
		{name: "take charge", target: model.AlarmStateInHandling},
		{name: "resolve new", target: model.AlarmStateResolved},
		{name: "resolve in handling", path: []model.AlarmState{model.AlarmStateInHandling}, target: model.AlarmStateResolved},
		{name: "same state", path: []model.AlarmState{model.AlarmStateInHandling}, target: model.AlarmStateInHandling, wantErr: util.ErrValidation},
		{name: "back to new", target: model.AlarmStateNew, wantErr: util.ErrValidation},
		{name: "reopen", path: []model.AlarmState{model.AlarmStateResolved}, target: model.AlarmStateInHandling, wantErr: util.ErrValidation},
		{name: "resolve twice", path: []model.AlarmState{model.AlarmStateResolved}, target: model.AlarmStateResolved, wantErr: util.ErrValidation},
		{name: "unknown", target: "closed", wantErr: util.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			who := model.Identity{Subject: "user-1", Role: "Admin"}

			v := f.vehicle(t, "AB123CD")
			a, err := f.svc.RaiseAlarm(ctx, v.ID, "low tyre pressure", "")
			require.NoError(t, err)

			for _, s := range tt.path {
				_, err := f.svc.TransitionAlarm(ctx, a.ID, s, who)
				require.NoError(t, err)
			}

			got, err := f.svc.TransitionAlarm(ctx, a.ID, tt.target, who)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.target, got.State)
			assert.Equal(t, "user-1", got.UpdatedBy)
			assert.True(t, got.UpdatedAt.After(got.CreatedAt))
			assert.Equal(t, tt.target == model.AlarmStateResolved, got.ResolvedAt != nil)
		})
	}
}

func TestTransitionAlarmNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.TransitionAlarm(context.Background(), "missing", model.AlarmStateResolved, model.Identity{})
	assert.ErrorIs(t, err, util.ErrNotFound)
}

// Resolving the last open alarm returns the vehicle to its motion status.
func TestResolveRederivesVehicleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	first, err := f.svc.IngestTelemetry(ctx, &model.TelemetryReading{Plate: "AB123CD", Speed: 20, FaultDescription: "engine"})
	require.NoError(t, err)
	second, err := f.svc.IngestTelemetry(ctx, &model.TelemetryReading{Plate: "AB123CD", Speed: 20, FaultDescription: "brakes"})
	require.NoError(t, err)

	_, err = f.svc.TransitionAlarm(ctx, first.AlarmID, model.AlarmStateResolved, model.Identity{Subject: "u"})
	require.NoError(t, err)

	got, err := f.svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusAlarm, got.Status, "one alarm is still open")

	_, err = f.svc.TransitionAlarm(ctx, second.AlarmID, model.AlarmStateResolved, model.Identity{Subject: "u"})
	require.NoError(t, err)

	got, err = f.svc.GetVehicle(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, model.VehicleStatusMoving, got.Status)
}

func TestResolveWithMissingVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	a, err := f.svc.RaiseAlarm(ctx, v.ID, "engine", model.AlarmSeverityMajor)
	require.NoError(t, err)
	require.NoError(t, f.store.Vehicle().Delete(ctx, v.ID))

	got, err := f.svc.TransitionAlarm(ctx, a.ID, model.AlarmStateResolved, model.Identity{Subject: "u"})
	require.NoError(t, err)
	assert.Equal(t, model.AlarmStateResolved, got.State)

	views, err := f.svc.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Empty(t, views[0].Plate)
}

func TestRaiseAlarmValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	_, err := f.svc.RaiseAlarm(ctx, "missing", "engine", "")
	assert.ErrorIs(t, err, util.ErrNotFound)

	_, err = f.svc.RaiseAlarm(ctx, v.ID, " ", "")
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = f.svc.RaiseAlarm(ctx, v.ID, "engine", "critical")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestListAlarmsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.vehicle(t, "AB123CD")
	b := f.vehicle(t, "EF456GH")

	var ids []string
	for _, vid := range []string{a.ID, b.ID, a.ID} {
		al, err := f.svc.RaiseAlarm(ctx, vid, "fault", "")
		require.NoError(t, err)
		ids = append(ids, al.ID)
	}

	views, err := f.svc.ListAlarms(ctx)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{views[0].ID, views[1].ID, views[2].ID})
	assert.Equal(t, []string{"AB123CD", "EF456GH", "AB123CD"}, []string{views[0].Plate, views[1].Plate, views[2].Plate})
}

func TestRemoveVehicle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "AB123CD")

	a, err := f.svc.RaiseAlarm(ctx, v.ID, "engine", "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.RemoveVehicle(ctx, v.ID), util.ErrConflict)

	_, err = f.svc.TransitionAlarm(ctx, a.ID, model.AlarmStateResolved, model.Identity{Subject: "u"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RemoveVehicle(ctx, v.ID))

	_, err = f.svc.GetVehicle(ctx, v.ID)
	assert.ErrorIs(t, err, util.ErrNotFound)

	views, err := f.svc.ListAlarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, views, "resolved history is removed with the vehicle")

	assert.NoError(t, f.svc.RemoveVehicle(ctx, v.ID), "removing an absent vehicle succeeds")
}

func TestLoginAndRegister(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.EnsureUser(ctx, "Ops@Example.com", "secret", "Admin"))
	require.NoError(t, f.svc.EnsureUser(ctx, "ops@example.com", "other", "Admin"), "existing account is kept")

	token, u, err := f.svc.Login(ctx, " OPS@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", u.Email)
	assert.Equal(t, "Admin", u.Role)

	claims, err := f.tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.Subject)
	assert.Equal(t, "Admin", claims.Role)

	_, _, err = f.svc.Login(ctx, "ops@example.com", "other")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "ghost@example.com", "secret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, "", "")
	assert.ErrorIs(t, err, util.ErrValidation)

	m, err := f.svc.RegisterUser(ctx, "fleet@example.com", "pw", "")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultRole, m.Role)
	assert.NotEqual(t, "pw", m.PasswordHash)

	_, err = f.svc.RegisterUser(ctx, "fleet@example.com", "pw", "")
	assert.ErrorIs(t, err, util.ErrConflict)

	_, err = f.svc.RegisterUser(ctx, "not-an-email", "pw", "")
	assert.ErrorIs(t, err, util.ErrValidation)
}
