package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/fleetwatch-io/fleetwatch/cmd/fleetwatch-server/app/options"
	"github.com/fleetwatch-io/fleetwatch/pkg/app"
)

const (
	commandName = "fleetwatch-server"
	commandDesc = `The Fleetwatch server keeps the vehicle registry and the alarm ledger,
ingests telemetry over HTTP and MQTT, and pushes new alarms to connected
dashboards.`
)

func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		commandName,
		"Launch a Fleetwatch server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithEnvPrefix("FLEETWATCH"),
		app.WithWatchConfig(),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		server, err := cfg.NewFleetServer(ctx)
		if err != nil {
			return fmt.Errorf("failed to create fleetwatch server: %w", err)
		}

		return server.Run(ctx)
	}
}
