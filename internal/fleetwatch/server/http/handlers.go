package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/service"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/notifier"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/auth"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

type handler struct {
	svc    *service.Service
	hub    *notifier.Hub
	tokens *auth.TokenManager
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type vehicleRequest struct {
	Plate         string `json:"plate"`
	DriverName    string `json:"driverName"`
	DriverContact string `json:"driverContact"`
}

// vehicleUpdateRequest accepts status only to reject it with a clear message.
type vehicleUpdateRequest struct {
	Plate         *string              `json:"plate,omitempty"`
	DriverName    *string              `json:"driverName,omitempty"`
	DriverContact *string              `json:"driverContact,omitempty"`
	Status        *model.VehicleStatus `json:"status,omitempty"`
}

type alarmTransitionRequest struct {
	State model.AlarmState `json:"state"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func toUserResponse(u *model.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	token, u, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: toUserResponse(u)})
}

func (h *handler) registerUser(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.svc.RegisterUser(r.Context(), req.Email, req.Password, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toUserResponse(u))
}

func (h *handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.svc.ListVehicles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []*model.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.svc.RegisterVehicle(r.Context(), req.Plate, req.DriverName, req.DriverContact)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

func (h *handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.GetVehicle(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *handler) updateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleUpdateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.svc.UpdateVehicle(r.Context(), mux.Vars(r)["id"], &model.VehicleUpdate{
		Plate:         req.Plate,
		DriverName:    req.DriverName,
		DriverContact: req.DriverContact,
		Status:        req.Status,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *handler) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.RemoveVehicle(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "vehicle removed"})
}

func (h *handler) listAlarms(w http.ResponseWriter, r *http.Request) {
	alarms, err := h.svc.ListAlarms(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if alarms == nil {
		alarms = []*model.AlarmView{}
	}
	writeJSON(w, http.StatusOK, alarms)
}

func (h *handler) transitionAlarm(w http.ResponseWriter, r *http.Request) {
	var req alarmTransitionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.State == "" {
		writeError(w, r, util.Validationf("state is required"))
		return
	}

	who, _ := IdentityFrom(r.Context())
	a, err := h.svc.TransitionAlarm(r.Context(), mux.Vars(r)["id"], req.State, who)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

func (h *handler) ingestTelemetry(w http.ResponseWriter, r *http.Request) {
	var reading model.TelemetryReading
	if err := decode(r, &reading); err != nil {
		writeError(w, r, err)
		return
	}

	result, err := h.svc.IngestTelemetry(r.Context(), &reading)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *handler) push(w http.ResponseWriter, r *http.Request) {
	who, _ := IdentityFrom(r.Context())
	if err := h.hub.Serve(w, r, who); err != nil {
		log.FromContext(r.Context()).Warn("Push session rejected", "error", err)
	}
}
