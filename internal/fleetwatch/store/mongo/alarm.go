package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/util"
)

var _ core.AlarmRepository = (*alarmRepository)(nil)

var openStates = bson.A{string(model.AlarmStateNew), string(model.AlarmStateInHandling)}

type alarmRepository struct {
	coll *mongo.Collection
}

func (r *alarmRepository) Create(ctx context.Context, a *model.Alarm) error {
	if _, err := r.coll.InsertOne(ctx, toAlarmDoc(a)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return util.Conflictf("alarm %s already exists", a.ID)
		}
		return fmt.Errorf("insert alarm: %w", err)
	}
	return nil
}

func (r *alarmRepository) Get(ctx context.Context, id string) (*model.Alarm, error) {
	var doc alarmDoc
	if err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, util.NotFoundf("alarm %s not found", id)
		}
		return nil, fmt.Errorf("find alarm: %w", err)
	}
	return doc.toModel(), nil
}

func (r *alarmRepository) List(ctx context.Context) ([]*model.Alarm, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list alarms: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []alarmDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode alarms: %w", err)
	}

	out := make([]*model.Alarm, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

func (r *alarmRepository) UpdateState(ctx context.Context, a *model.Alarm, from model.AlarmState) error {
	set := bson.D{
		{Key: "state", Value: string(a.State)},
		{Key: "updated_at", Value: a.UpdatedAt},
		{Key: "updated_by", Value: a.UpdatedBy},
	}
	if a.ResolvedAt != nil {
		set = append(set, bson.E{Key: "resolved_at", Value: *a.ResolvedAt})
	}

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: a.ID}, {Key: "state", Value: string(from)}},
		bson.D{{Key: "$set", Value: set}},
	)
	if err != nil {
		return fmt.Errorf("update alarm state: %w", err)
	}
	if res.MatchedCount == 1 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: a.ID}})
	if err != nil {
		return fmt.Errorf("update alarm state: %w", err)
	}
	if n == 0 {
		return util.NotFoundf("alarm %s not found", a.ID)
	}
	return util.Conflictf("alarm %s changed state concurrently", a.ID)
}

func (r *alarmRepository) CountOpen(ctx context.Context, vehicleID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.D{
		{Key: "vehicle_id", Value: vehicleID},
		{Key: "state", Value: bson.D{{Key: "$in", Value: openStates}}},
	})
	if err != nil {
		return 0, fmt.Errorf("count open alarms: %w", err)
	}
	return n, nil
}

func (r *alarmRepository) DeleteByVehicle(ctx context.Context, vehicleID string) error {
	if _, err := r.coll.DeleteMany(ctx, bson.D{{Key: "vehicle_id", Value: vehicleID}}); err != nil {
		return fmt.Errorf("delete alarms: %w", err)
	}
	return nil
}
