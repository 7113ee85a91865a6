package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt"
	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt/topic"
)

// ExampleClient shows how a field gateway publishes a telemetry reading and
// how the server side consumes every vehicle's readings through one filter.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "gateway-001",
		KeepAlive:      60,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	// Start returns immediately; the connection is established in the background.
	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}
	defer client.Disconnect(ctx)

	topics := topic.NewBuilder("fleetwatch/v1")

	// Handlers run on their own goroutine. Subscriptions survive reconnects.
	filter := topics.Shared("fleetwatch").BuildWildcard("telemetry")
	if err := client.Subscribe(ctx, filter, 1, func(ctx context.Context, t string, payload []byte) {
		plate, _ := topics.ID("telemetry", t)
		fmt.Printf("reading from %s: %s\n", plate, payload)
	}); err != nil {
		log.Error(err, "Failed to subscribe", "topic", filter)
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	payload := []byte(`{"position":{"lat":45.07,"lng":7.68},"speed":42,"fuelLevel":71}`)
	if err := client.Publish(ctx, topics.Build("telemetry", "AB123CD"), 1, false, payload); err != nil {
		log.Error(err, "Failed to publish reading")
	}
}
