// Package redis mirrors live vehicle state into Redis and publishes alarm events
// on a Redis channel, for consumers such as live maps.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/pkg/options"
)

// Keys and channels.
const (
	GeoKey           = "fleet:geo"
	TelemetryChannel = "fleet:telemetry"
	AlarmChannel     = "fleet:alarms"
)

var (
	_ core.StateMirror   = (*Store)(nil)
	_ core.AlarmNotifier = (*Store)(nil)
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(ctx context.Context, opts *options.RedisOptions) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Store{client: client, ttl: opts.StateTTL}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MirrorVehicle stores the vehicle's latest state in a hash with a TTL, moves it
// on the fleet GEO set and publishes the state on the telemetry channel, in one pipeline.
func (s *Store) MirrorVehicle(ctx context.Context, v *model.Vehicle) error {
	state := stateFields(v)

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	key := StateKey(v.Plate)

	pipe := s.client.Pipeline()
	pipe.HSet(ctx, key, state)
	pipe.Expire(ctx, key, s.ttl)
	pipe.GeoAdd(ctx, GeoKey, &redis.GeoLocation{
		Name:      v.Plate,
		Longitude: v.Position.Lng,
		Latitude:  v.Position.Lat,
	})
	pipe.Publish(ctx, TelemetryChannel, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline failed: %w", err)
	}
	return nil
}

// Notify publishes the alarm event on AlarmChannel.
func (s *Store) Notify(ctx context.Context, event *model.AlarmEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal alarm event: %w", err)
	}
	return s.client.Publish(ctx, AlarmChannel, payload).Err()
}

// StateKey is the hash holding the live state of the vehicle with plate.
func StateKey(plate string) string {
	return fmt.Sprintf("vehicle:%s:state", plate)
}

func stateFields(v *model.Vehicle) map[string]any {
	return map[string]any{
		"vehicle_id":  v.ID,
		"plate":       v.Plate,
		"status":      string(v.Status),
		"lat":         v.Position.Lat,
		"lng":         v.Position.Lng,
		"speed":       v.Speed,
		"fuel_level":  v.FuelLevel,
		"last_update": v.LastUpdate.Unix(),
	}
}
