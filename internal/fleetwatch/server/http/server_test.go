package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/service"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/notifier"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/store/memory"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/auth"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

const (
	adminEmail    = "ops@example.com"
	adminPassword = "correct horse"
)

type env struct {
	t       *testing.T
	handler http.Handler
	hub     *notifier.Hub
	token   string
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("no route to host") }

func newEnv(t *testing.T, ready Pinger) *env {
	t.Helper()

	store := memory.New()
	hub := notifier.NewHub(8)
	tokens := auth.NewTokenManager("0123456789abcdef0123", "fleetwatch", time.Hour)

	svc := service.New(store, hub,
		service.WithTokenIssuer(tokens),
		service.WithPasswordHasher(auth.NewHasher(bcrypt.MinCost)),
	)
	require.NoError(t, svc.EnsureUser(context.Background(), adminEmail, adminPassword, "Admin"))

	e := &env{
		t:       t,
		handler: NewHandler(options.NewHttpOptions(), svc, hub, tokens, ready),
		hub:     hub,
	}

	rec := e.do(http.MethodPost, "/api/auth/login", map[string]string{"email": adminEmail, "password": adminPassword})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var login loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	e.token = login.Token
	return e
}

func (e *env) request(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(e.t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) do(method, path string, body any) *httptest.ResponseRecorder {
	return e.request(method, path, body, e.token)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (e *env) createVehicle(plate string) *model.Vehicle {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/veicoli", vehicleRequest{Plate: plate, DriverName: "Mario Rossi", DriverContact: "+39 333 0000000"})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeBody[*model.Vehicle](e.t, rec)
}

func TestProbes(t *testing.T) {
	e := newEnv(t, nil)

	assert.Equal(t, http.StatusOK, e.request(http.MethodGet, "/healthz", nil, "").Code)
	assert.Equal(t, http.StatusOK, e.request(http.MethodGet, "/readyz", nil, "").Code)

	rec := e.request(http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fleetwatch_")

	down := newEnv(t, failingPinger{})
	assert.Equal(t, http.StatusServiceUnavailable, down.request(http.MethodGet, "/readyz", nil, "").Code)
}

func TestLogin(t *testing.T) {
	e := newEnv(t, nil)

	t.Run("returns token and user", func(t *testing.T) {
		rec := e.request(http.MethodPost, "/api/auth/login", map[string]string{"email": "OPS@example.com", "password": adminPassword}, "")
		require.Equal(t, http.StatusOK, rec.Code)

		got := decodeBody[loginResponse](t, rec)
		assert.NotEmpty(t, got.Token)
		assert.Equal(t, adminEmail, got.User.Email)
		assert.Equal(t, "Admin", got.User.Role)
		assert.NotContains(t, rec.Body.String(), "password")
	})

	for name, body := range map[string]map[string]string{
		"wrong password": {"email": adminEmail, "password": "nope"},
		"unknown email":  {"email": "ghost@example.com", "password": adminPassword},
		"empty":          {"email": "", "password": ""},
	} {
		t.Run(name, func(t *testing.T) {
			rec := e.request(http.MethodPost, "/api/auth/login", body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeBody[errorResponse](t, rec).Error)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	e := newEnv(t, nil)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/veicoli"},
		{http.MethodPost, "/api/veicoli"},
		{http.MethodGet, "/api/veicoli/x"},
		{http.MethodPut, "/api/veicoli/x"},
		{http.MethodDelete, "/api/veicoli/x"},
		{http.MethodGet, "/api/allarmi"},
		{http.MethodPatch, "/api/allarmi/x"},
		{http.MethodPost, "/api/auth/register"},
		{http.MethodGet, "/api/ws"},
	}

	for _, r := range routes {
		t.Run(r.method+" "+r.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, e.request(r.method, r.path, nil, "").Code)
			assert.Equal(t, http.StatusUnauthorized, e.request(r.method, r.path, nil, "not-a-token").Code)
		})
	}
}

func TestRegisterUser(t *testing.T) {
	e := newEnv(t, nil)

	rec := e.do(http.MethodPost, "/api/auth/register", registerRequest{Email: "fleet@example.com", Password: "s3cret"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, model.DefaultRole, decodeBody[userResponse](t, rec).Role)

	assert.Equal(t, http.StatusConflict, e.do(http.MethodPost, "/api/auth/register", registerRequest{Email: "fleet@example.com", Password: "x"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/auth/register", registerRequest{Email: "", Password: ""}).Code)

	login := e.request(http.MethodPost, "/api/auth/login", map[string]string{"email": "fleet@example.com", "password": "s3cret"}, "")
	assert.Equal(t, http.StatusOK, login.Code)
}

func TestVehicleCRUD(t *testing.T) {
	e := newEnv(t, nil)

	v := e.createVehicle("AB123CD")
	assert.Equal(t, model.VehicleStatusStopped, v.Status)
	assert.Equal(t, float64(100), v.FuelLevel)

	t.Run("duplicate plate", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/veicoli", vehicleRequest{Plate: "AB123CD", DriverName: "a", DriverContact: "b"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing field", func(t *testing.T) {
		rec := e.do(http.MethodPost, "/api/veicoli", vehicleRequest{Plate: "ZZ000ZZ", DriverName: " "})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/veicoli", "{").Code)
		assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/api/veicoli", `{"plate":"X","color":"red"}`).Code)
	})

	t.Run("list and get", func(t *testing.T) {
		list := decodeBody[[]model.Vehicle](t, e.do(http.MethodGet, "/api/veicoli", nil))
		require.Len(t, list, 1)
		assert.Equal(t, v.ID, list[0].ID)

		rec := e.do(http.MethodGet, "/api/veicoli/"+v.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "AB123CD", decodeBody[model.Vehicle](t, rec).Plate)

		assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/veicoli/missing", nil).Code)
	})

	t.Run("update", func(t *testing.T) {
		rec := e.do(http.MethodPut, "/api/veicoli/"+v.ID, map[string]string{"driverName": "Luigi Bianchi"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := decodeBody[model.Vehicle](t, rec)
		assert.Equal(t, "Luigi Bianchi", got.DriverName)
		assert.Equal(t, "AB123CD", got.Plate)
	})

	t.Run("status is not writable", func(t *testing.T) {
		rec := e.do(http.MethodPut, "/api/veicoli/"+v.ID, map[string]string{"status": "moving"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update unknown vehicle", func(t *testing.T) {
		rec := e.do(http.MethodPut, "/api/veicoli/missing", map[string]string{"driverName": "x"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("update to taken plate", func(t *testing.T) {
		e.createVehicle("EF456GH")
		rec := e.do(http.MethodPut, "/api/veicoli/"+v.ID, map[string]string{"plate": "EF456GH"})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("delete", func(t *testing.T) {
		rec := e.do(http.MethodDelete, "/api/veicoli/"+v.ID, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decodeBody[messageResponse](t, rec).Message)

		assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/api/veicoli/"+v.ID, nil).Code)
		assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/veicoli/"+v.ID, nil).Code)
	})
}

func TestTelemetryAndAlarmLifecycle(t *testing.T) {
	e := newEnv(t, nil)
	v := e.createVehicle("AB123CD")

	t.Run("open endpoint", func(t *testing.T) {
		rec := e.request(http.MethodPost, "/api/telemetria", model.TelemetryReading{
			Plate: "AB123CD", Position: model.Position{Lat: 45.46, Lng: 9.19}, Speed: 50, FuelLevel: 80,
		}, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, model.VehicleStatusMoving, decodeBody[model.IngestResult](t, rec).Status)
	})

	t.Run("unknown plate", func(t *testing.T) {
		rec := e.request(http.MethodPost, "/api/telemetria", model.TelemetryReading{Plate: "NOPE"}, "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("missing plate", func(t *testing.T) {
		rec := e.request(http.MethodPost, "/api/telemetria", model.TelemetryReading{Speed: 10}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	rec := e.request(http.MethodPost, "/api/telemetria", model.TelemetryReading{
		Plate: "AB123CD", Speed: 0, FuelLevel: 79, FaultDescription: "engine overheating",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[model.IngestResult](t, rec)
	assert.Equal(t, model.VehicleStatusAlarm, result.Status)
	require.NotEmpty(t, result.AlarmID)

	alarms := decodeBody[[]model.AlarmView](t, e.do(http.MethodGet, "/api/allarmi", nil))
	require.Len(t, alarms, 1)
	assert.Equal(t, "AB123CD", alarms[0].Plate)
	assert.Equal(t, model.AlarmStateNew, alarms[0].State)

	t.Run("vehicle with open alarm cannot be removed", func(t *testing.T) {
		assert.Equal(t, http.StatusConflict, e.do(http.MethodDelete, "/api/veicoli/"+v.ID, nil).Code)
	})

	path := "/api/allarmi/" + result.AlarmID

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, path, map[string]string{"state": "bogus"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, path, map[string]string{}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPatch, "/api/allarmi/missing", map[string]string{"state": "resolved"}).Code)

	rec = e.do(http.MethodPatch, path, map[string]string{"state": "in-handling"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, model.AlarmStateInHandling, decodeBody[model.Alarm](t, rec).State)

	rec = e.do(http.MethodPatch, path, map[string]string{"state": "resolved"})
	require.Equal(t, http.StatusOK, rec.Code)
	resolved := decodeBody[model.Alarm](t, rec)
	assert.Equal(t, model.AlarmStateResolved, resolved.State)
	assert.NotNil(t, resolved.ResolvedAt)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPatch, path, map[string]string{"state": "in-handling"}).Code)

	got := decodeBody[model.Vehicle](t, e.do(http.MethodGet, "/api/veicoli/"+v.ID, nil))
	assert.Equal(t, model.VehicleStatusStopped, got.Status)

	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/api/veicoli/"+v.ID, nil).Code)
}

func TestPushEndpoint(t *testing.T) {
	e := newEnv(t, nil)
	e.createVehicle("AB123CD")

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + e.token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return e.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	rec := e.request(http.MethodPost, "/api/telemetria", model.TelemetryReading{Plate: "AB123CD", FaultDescription: "flat tyre"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	alarmID := decodeBody[model.IngestResult](t, rec).AlarmID

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame struct {
		Event string           `json:"event"`
		Data  model.AlarmEvent `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, notifier.EventNewAlarm, frame.Event)
	assert.Equal(t, model.AlarmEvent{AlarmID: alarmID, Plate: "AB123CD", Message: "Alarm detected: flat tyre"}, frame.Data)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("mongo: connection reset"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), decodeBody[errorResponse](t, rec).Error)
}
