package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/service"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/notifier"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/auth"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/metrics"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

// Pinger reports whether a backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server serves the REST API, the push endpoint, probes and metrics.
type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

// NewServer builds the HTTP server. ready is consulted by /readyz.
func NewServer(opts *options.HttpOptions, svc *service.Service, hub *notifier.Hub, tokens *auth.TokenManager, ready Pinger) *Server {
	return &Server{
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      NewHandler(opts, svc, hub, tokens, ready),
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		options: opts,
	}
}

// NewHandler assembles the router with CORS, panic recovery and request logging.
func NewHandler(opts *options.HttpOptions, svc *service.Service, hub *notifier.Hub, tokens *auth.TokenManager, ready Pinger) http.Handler {
	h := &handler{svc: svc, hub: hub, tokens: tokens}

	r := mux.NewRouter()
	r.Use(requestLogger)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready.Ping(ctx); err != nil {
				log.FromContext(r.Context()).Warn("Readiness check failed", "error", err)
				http.Error(w, "store unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// open endpoints
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	api.HandleFunc("/telemetria", h.ingestTelemetry).Methods(http.MethodPost)

	secured := api.NewRoute().Subrouter()
	secured.Use(h.authenticate)

	secured.HandleFunc("/auth/register", h.registerUser).Methods(http.MethodPost)

	secured.HandleFunc("/veicoli", h.listVehicles).Methods(http.MethodGet)
	secured.HandleFunc("/veicoli", h.createVehicle).Methods(http.MethodPost)
	secured.HandleFunc("/veicoli/{id}", h.getVehicle).Methods(http.MethodGet)
	secured.HandleFunc("/veicoli/{id}", h.updateVehicle).Methods(http.MethodPut)
	secured.HandleFunc("/veicoli/{id}", h.deleteVehicle).Methods(http.MethodDelete)

	secured.HandleFunc("/allarmi", h.listAlarms).Methods(http.MethodGet)
	secured.HandleFunc("/allarmi/{id}", h.transitionAlarm).Methods(http.MethodPatch)

	secured.HandleFunc("/ws", h.push).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(opts.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)

	return handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)(cors(r))
}

func (s *Server) Start(ctx context.Context) error {
	log.Info("Starting HTTP Server", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("Shutting down HTTP Server", "grace", s.options.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
