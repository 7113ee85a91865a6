package fleetwatch

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/service"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/notifier"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/server"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/store/redis"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/auth"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

const (
	sinkQueueSize   = 256
	sinkTimeout     = 5 * time.Second
	pushQueueSize   = 32
	startupDeadline = 30 * time.Second
)

type Config struct {
	HttpOptions  *options.HttpOptions
	MqttOptions  *options.MqttOptions
	MongoOptions *options.MongoOptions
	RedisOptions *options.RedisOptions
	JWTOptions   *options.JWTOptions
	StoreOptions *options.StoreOptions
	AuthOptions  *options.AuthOptions
}

// NewFleetServer connects the backends and assembles the application.
// Connections opened before a failure are released.
func (cfg *Config) NewFleetServer(ctx context.Context) (_ *FleetServer, err error) {
	ctx, cancel := context.WithTimeout(ctx, startupDeadline)
	defer cancel()

	fs := &FleetServer{}
	defer func() {
		if err != nil {
			fs.cleanup()
		}
	}()

	// 1. Infrastructure: Repository (Secondary Adapter)
	repo, err := InitializeStore(ctx, cfg.StoreOptions, cfg.MongoOptions)
	if err != nil {
		return nil, err
	}
	fs.closers = append(fs.closers, func(ctx context.Context) error { return repo.Close(ctx) })

	// 2. Infrastructure: Notifier sinks (Secondary Adapters)
	hub := notifier.NewHub(pushQueueSize)
	fs.closers = append(fs.closers, func(context.Context) error { hub.Close(); return nil })
	sinks := []notifier.Sink{{Name: "push", Notifier: hub}}

	var svcOpts []service.Option

	if cfg.RedisOptions.Enabled {
		rs, err := redis.NewStore(ctx, cfg.RedisOptions)
		if err != nil {
			return nil, err
		}
		fs.closers = append(fs.closers, func(context.Context) error { return rs.Close() })

		sinks = append(sinks, fs.async("redis", rs))
		svcOpts = append(svcOpts, service.WithStateMirror(rs))
	}

	var ingress *mqttClients
	if cfg.MqttOptions.Enabled {
		ingress, err = InitializeMQTTClients(cfg.MqttOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to init mqtt: %w", err)
		}
		fs.closers = append(fs.closers, func(ctx context.Context) error { ingress.notifier.Close(ctx); return nil })
		sinks = append(sinks, fs.async("mqtt", ingress.notifier))
	}

	// 3. Access Gate
	tokens := auth.NewTokenManager(cfg.JWTOptions.Secret, cfg.JWTOptions.Issuer, cfg.JWTOptions.Expiry)
	svcOpts = append(svcOpts,
		service.WithTokenIssuer(tokens),
		service.WithPasswordHasher(auth.NewHasher(cfg.AuthOptions.BcryptCost)),
	)

	// 4. Core Domain Service
	svc := service.New(repo, notifier.NewFanout(sinks...), svcOpts...)

	if cfg.AuthOptions.AdminEmail != "" {
		if err := svc.EnsureUser(ctx, cfg.AuthOptions.AdminEmail, cfg.AuthOptions.AdminPassword, cfg.AuthOptions.AdminRole); err != nil {
			return nil, fmt.Errorf("failed to bootstrap operator: %w", err)
		}
		log.Info("Bootstrap operator ready", "email", cfg.AuthOptions.AdminEmail)
	}

	// 5. Ingress Servers (Primary Adapters)
	serverConfig := &server.Config{
		HttpOptions: cfg.HttpOptions,
		MqttOptions: cfg.MqttOptions,
		Hub:         hub,
		Tokens:      tokens,
		Ready:       repo,
	}
	if ingress != nil {
		serverConfig.MqttClient = ingress.client
	}

	fs.serverManager = server.NewManager(serverConfig, svc)
	return fs, nil
}

// async wraps a network sink so that a slow backend never delays ingestion.
func (fs *FleetServer) async(name string, n core.AlarmNotifier) notifier.Sink {
	a := notifier.NewAsync(name, n, sinkQueueSize, sinkTimeout)
	fs.closers = append(fs.closers, func(context.Context) error { a.Close(); return nil })
	return notifier.Sink{Name: name, Notifier: a}
}
