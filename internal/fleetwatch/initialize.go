package fleetwatch

import (
	"context"
	"fmt"
	"os"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/notifier"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/store/memory"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/store/mongo"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

// InitializeStore opens the configured persistence backend.
func InitializeStore(ctx context.Context, storeOpts *options.StoreOptions, mongoOpts *options.MongoOptions) (core.Repository, error) {
	switch storeOpts.Driver {
	case options.StoreDriverMemory:
		log.Warn("Using the in-memory store; data is lost on restart")
		return memory.New(), nil
	case options.StoreDriverMongo:
		s, err := mongo.NewStore(ctx, mongoOpts)
		if err != nil {
			log.Error(err, "failed to open mongo store")
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", storeOpts.Driver)
	}
}

type mqttClients struct {
	client   mqtt.Client
	notifier *notifier.MQTTNotifier
}

// InitializeMQTTClients creates the ingress client and the alarm publisher.
// The hostname is appended to the configured client id so replicas do not
// steal each other's sessions.
func InitializeMQTTClients(opts *options.MqttOptions) (*mqttClients, error) {
	clientID := opts.ClientID
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		clientID = fmt.Sprintf("%s-%s", clientID, hostname)
	}

	client, err := mqtt.NewClient(opts.ToClientConfig(clientID))
	if err != nil {
		log.Error(err, "failed to new mqtt client")
		return nil, err
	}

	n, err := notifier.NewMQTTNotifier(opts, clientID)
	if err != nil {
		log.Error(err, "failed to new mqtt notifier")
		return nil, err
	}

	return &mqttClients{client: client, notifier: n}, nil
}
