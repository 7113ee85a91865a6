package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
)

// MessageHandler processes a message received on a subscribed topic.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client is a reconnecting MQTT v5 client. It hides the paho connection manager.
type Client interface {
	// Start initiates the connection to the broker.
	// It is non-blocking and returns immediately. Use AwaitConnection to wait.
	Start(ctx context.Context) error

	// Disconnect cleanly closes the connection.
	Disconnect(ctx context.Context)

	// Publish sends a message to the specified topic.
	Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error

	// Subscribe registers a handler for a topic filter. Filters may be shared
	// ("$share/group/...") and may contain wildcards. Subscriptions are
	// replayed after a reconnect.
	Subscribe(ctx context.Context, topic string, qos int, handler MessageHandler) error

	// Unsubscribe removes the handler and sends an UNSUBSCRIBE packet.
	Unsubscribe(ctx context.Context, topic string) error

	// AwaitConnection blocks until the client is connected to the broker.
	AwaitConnection(ctx context.Context) error

	// IsConnected reports whether the last connection attempt succeeded and has not been lost.
	IsConnected() bool
}

// PublishJSON marshals v and publishes it without the retain flag.
func PublishJSON(ctx context.Context, c Client, topic string, qos int, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", topic, err)
	}
	return c.Publish(ctx, topic, qos, false, payload)
}
