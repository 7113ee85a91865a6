// Package mongo implements the repository ports on MongoDB.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
	pkgoptions "github.com/fleetwatch-io/fleetwatch/pkg/options"
)

// Collection names.
const (
	VehicleCollection = "vehicles"
	AlarmCollection   = "alarms"
	UserCollection    = "users"
)

var _ core.Repository = (*Store)(nil)

// Store implements core.Repository on one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB, verifies the connection and creates the indexes
// the repositories rely on (unique plate and email, alarm ordering).
func NewStore(ctx context.Context, opts *pkgoptions.MongoOptions) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(opts.Timeout).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetLoggerOptions(options.Logger().
			SetSink(log.WithName("mongo").Logr().GetSink()).
			SetComponentLevel(options.LogComponentTopology, options.LogLevelInfo))

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	s := &Store{client: client, db: client.Database(opts.Database)}

	indexCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()
	if err := s.ensureIndexes(indexCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	log.Info("Connected to MongoDB", "database", opts.Database)
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		VehicleCollection: {
			{Keys: bson.D{{Key: "plate", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}},
		},
		AlarmCollection: {
			{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
			{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "state", Value: 1}}},
		},
		UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) Vehicle() core.VehicleRepository {
	return &vehicleRepository{coll: s.db.Collection(VehicleCollection)}
}

func (s *Store) Alarm() core.AlarmRepository {
	return &alarmRepository{coll: s.db.Collection(AlarmCollection)}
}

func (s *Store) User() core.UserRepository {
	return &userRepository{coll: s.db.Collection(UserCollection)}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
