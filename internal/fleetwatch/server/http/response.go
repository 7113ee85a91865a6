package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error kind to a status code. Internal errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	msg := err.Error()

	if code == http.StatusInternalServerError {
		log.FromContext(r.Context()).Error(err, "Request failed")
		msg = http.StatusText(code)
	}

	writeJSON(w, code, errorResponse{Error: msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, util.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, util.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, util.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, util.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a single JSON object, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return util.Validationf("request body is required")
		}
		return util.Validationf("invalid request body: %s", err)
	}
	if dec.More() {
		return util.Validationf("request body must contain a single JSON object")
	}
	return nil
}
