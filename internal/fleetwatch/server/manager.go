package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/service"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/server/http"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/server/mqtt"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt/topic"
)

// Server defines the common interface for all sub-servers (http, mqtt).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates a new server manager and initializes all sub-servers.
func NewManager(cfg *Config, svc *service.Service) *Manager {
	var servers []Server

	// REST API, push channel, probes and metrics.
	servers = append(servers, http.NewServer(cfg.HttpOptions, svc, cfg.Hub, cfg.Tokens, cfg.Ready))

	// Telemetry ingress from field gateways.
	if cfg.MqttClient != nil {
		builder := topic.NewBuilder(cfg.MqttOptions.TopicRoot)
		servers = append(servers, mqtt.NewServer(cfg.MqttClient, builder, cfg.MqttOptions.QoS, svc))
	}

	return NewManagerFor(servers...)
}

// NewManagerFor runs the given servers.
func NewManagerFor(servers ...Server) *Manager {
	return &Manager{servers: servers}
}

// Start launches all servers in parallel and waits for termination.
// The first server to fail cancels the others.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...", "count", len(m.servers))
	return g.Wait()
}
