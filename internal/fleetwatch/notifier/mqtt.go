package notifier

import (
	"context"
	"errors"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/mqtt/paths"
	pkgmqtt "github.com/fleetwatch-io/fleetwatch/pkg/mqtt"
	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt/topic"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

var _ core.AlarmNotifier = (*MQTTNotifier)(nil)

// ErrOffline is returned while the egress connection is down.
var ErrOffline = errors.New("mqtt notifier is not connected")

// MQTTNotifier publishes alarm events on {root}/alarm/{plate}.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
	qos    int
}

// NewMQTTNotifier creates and starts a dedicated egress client, distinct from
// the ingress client, identified as clientID + "-notifier".
func NewMQTTNotifier(opts *options.MqttOptions, clientID string) (*MQTTNotifier, error) {
	client, err := pkgmqtt.NewClient(opts.ToClientConfig(clientID + "-notifier"))
	if err != nil {
		return nil, err
	}

	if err := client.Start(context.Background()); err != nil {
		return nil, err
	}

	return newMQTTNotifier(client, topic.NewBuilder(opts.TopicRoot), opts.QoS), nil
}

func newMQTTNotifier(client pkgmqtt.Client, topics *topic.Builder, qos int) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topics, qos: qos}
}

func (n *MQTTNotifier) Notify(ctx context.Context, event *model.AlarmEvent) error {
	if !n.client.IsConnected() {
		return ErrOffline
	}
	return pkgmqtt.PublishJSON(ctx, n.client, n.topics.Build(paths.Alarm, event.Plate), n.qos, event)
}

// Close disconnects the egress client.
func (n *MQTTNotifier) Close(ctx context.Context) {
	n.client.Disconnect(ctx)
}
