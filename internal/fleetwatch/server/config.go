package server

import (
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/notifier"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/server/http"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/auth"
	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

// Config carries what the ingress servers need besides the core service.
type Config struct {
	HttpOptions *options.HttpOptions
	MqttOptions *options.MqttOptions

	Hub    *notifier.Hub
	Tokens *auth.TokenManager

	// Ready backs the /readyz probe.
	Ready http.Pinger

	// MqttClient is the ingress connection; nil disables MQTT ingress.
	MqttClient mqtt.Client
}
