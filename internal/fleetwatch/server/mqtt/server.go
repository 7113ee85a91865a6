package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/mqtt/paths"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	pkgmqtt "github.com/fleetwatch-io/fleetwatch/pkg/mqtt"
	"github.com/fleetwatch-io/fleetwatch/pkg/mqtt/topic"
)

// Ingestor is the use case reached by telemetry messages.
type Ingestor interface {
	IngestTelemetry(ctx context.Context, r *model.TelemetryReading) (*model.IngestResult, error)
}

// Server implements the MQTT ingress layer.
type Server struct {
	client pkgmqtt.Client
	topics *topic.Builder
	qos    int
	svc    Ingestor
}

// NewServer creates a new MQTT server (client).
func NewServer(client pkgmqtt.Client, builder *topic.Builder, qos int, svc Ingestor) *Server {
	return &Server{
		client: client,
		topics: builder,
		qos:    qos,
		svc:    svc,
	}
}

// Start connects to the broker and subscribes to topics.
func (s *Server) Start(ctx context.Context) error {
	// Non-blocking; the connection manager keeps retrying in the background.
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		log.Info("Disconnecting MQTT client...")
		// The run context is already cancelled here.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
		log.Info("MQTT client disconnected")
	}()

	log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	log.Info("MQTT Connected")

	if err := s.initMQTTSubscriptions(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	return nil
}

func (s *Server) initMQTTSubscriptions(ctx context.Context) error {
	subscriptions := map[string]pkgmqtt.MessageHandler{
		paths.Telemetry: s.handleTelemetry,
	}

	for segment, handler := range subscriptions {
		fullTopic := s.topics.Shared(paths.GroupServer).BuildWildcard(segment)
		if err := s.client.Subscribe(ctx, fullTopic, s.qos, handler); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", fullTopic, err)
		}
		log.Info("Subscribed", "topic", fullTopic)
	}

	return nil
}

// handleTelemetry ingests one reading. The plate comes from the topic; a plate
// in the payload must match it.
func (s *Server) handleTelemetry(ctx context.Context, t string, payload []byte) {
	logger := log.WithValues("topic", t)

	if err := s.ingest(ctx, t, payload); err != nil {
		switch {
		case errors.Is(err, util.ErrNotFound), errors.Is(err, util.ErrValidation):
			logger.Warn("Telemetry rejected", "error", err)
		default:
			logger.Error(err, "Handler execution failed")
		}
	}
}

func (s *Server) ingest(ctx context.Context, t string, payload []byte) error {
	plate, ok := s.topics.ID(paths.Telemetry, t)
	if !ok {
		return util.Validationf("unexpected telemetry topic %q", t)
	}

	var reading model.TelemetryReading
	if err := json.Unmarshal(payload, &reading); err != nil {
		return util.Validationf("decode telemetry: %v", err)
	}

	if p := strings.TrimSpace(reading.Plate); p != "" && p != plate {
		return util.Validationf("payload plate %q does not match topic plate %q", p, plate)
	}
	reading.Plate = plate

	result, err := s.svc.IngestTelemetry(log.NewContext(ctx, log.WithValues("plate", plate)), &reading)
	if err != nil {
		return err
	}

	log.Debug("Telemetry ingested over MQTT", "plate", plate, "status", result.Status)
	return nil
}
