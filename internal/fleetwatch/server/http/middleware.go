package http

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/metrics"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

type identityKey struct{}

func withIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFrom returns the caller attached by the authentication middleware.
func IdentityFrom(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(model.Identity)
	return id, ok
}

// authenticate accepts "Authorization: Bearer <token>". The push endpoint may
// pass the token as the "token" query parameter since browsers cannot set
// headers on websocket upgrades.
func (h *handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		claims, err := h.tokens.Verify(token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := withIdentity(r.Context(), model.Identity{Subject: claims.Subject, Role: claims.Role})
		ctx = log.NewContext(ctx, log.FromContext(ctx).WithValues("subject", claims.Subject))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// statusRecorder captures the response code.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// Hijack lets the push endpoint upgrade through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.code = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// requestLogger attaches a request-scoped logger and records latency.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		logger := log.WithValues("requestID", uuid.NewString(), "method", r.Method, "path", r.URL.Path)
		ctx := log.NewContext(r.Context(), logger)

		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		elapsed := time.Since(start)
		metrics.HTTPRequestDuration.WithLabelValues(route, r.Method, strconv.Itoa(rec.code)).Observe(elapsed.Seconds())
		logger.Debug("Request served", "status", rec.code, "duration", elapsed)
	})
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...any) {
	log.Error(fmt.Errorf("panic: %s", fmt.Sprint(v...)), "Recovered from panic in HTTP handler")
}
