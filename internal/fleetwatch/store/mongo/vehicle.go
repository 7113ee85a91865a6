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

var _ core.VehicleRepository = (*vehicleRepository)(nil)

type vehicleRepository struct {
	coll *mongo.Collection
}

func (r *vehicleRepository) Create(ctx context.Context, v *model.Vehicle) error {
	if _, err := r.coll.InsertOne(ctx, toVehicleDoc(v)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return util.Conflictf("plate %s is already registered", v.Plate)
		}
		return fmt.Errorf("insert vehicle: %w", err)
	}
	return nil
}

func (r *vehicleRepository) Get(ctx context.Context, id string) (*model.Vehicle, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id}}, "vehicle %s not found", id)
}

func (r *vehicleRepository) GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	return r.findOne(ctx, bson.D{{Key: "plate", Value: plate}}, "vehicle with plate %s not found", plate)
}

func (r *vehicleRepository) findOne(ctx context.Context, filter bson.D, notFound string, arg string) (*model.Vehicle, error) {
	var doc vehicleDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, util.NotFoundf(notFound, arg)
		}
		return nil, fmt.Errorf("find vehicle: %w", err)
	}
	return doc.toModel(), nil
}

func (r *vehicleRepository) List(ctx context.Context) ([]*model.Vehicle, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []vehicleDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode vehicles: %w", err)
	}

	out := make([]*model.Vehicle, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toModel())
	}
	return out, nil
}

func (r *vehicleRepository) Update(ctx context.Context, id string, u *model.VehicleUpdate) (*model.Vehicle, error) {
	set := bson.D{}
	if u.Plate != nil {
		set = append(set, bson.E{Key: "plate", Value: *u.Plate})
	}
	if u.DriverName != nil {
		set = append(set, bson.E{Key: "driver_name", Value: *u.DriverName})
	}
	if u.DriverContact != nil {
		set = append(set, bson.E{Key: "driver_contact", Value: *u.DriverContact})
	}
	if len(set) == 0 {
		return r.Get(ctx, id)
	}

	v, err := r.findOneAndSet(ctx, id, set)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil, util.Conflictf("plate %s is already registered", *u.Plate)
	}
	return v, err
}

func (r *vehicleRepository) ApplyTelemetry(ctx context.Context, id string, t *model.TelemetryUpdate) (*model.Vehicle, error) {
	return r.findOneAndSet(ctx, id, bson.D{
		{Key: "position", Value: positionDoc{Lat: t.Position.Lat, Lng: t.Position.Lng}},
		{Key: "speed", Value: t.Speed},
		{Key: "fuel_level", Value: t.FuelLevel},
		{Key: "status", Value: string(t.Status)},
		{Key: "last_update", Value: t.LastUpdate},
	})
}

func (r *vehicleRepository) SetStatus(ctx context.Context, id string, status model.VehicleStatus) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(status)}}}},
	)
	if err != nil {
		return fmt.Errorf("set vehicle status: %w", err)
	}
	if res.MatchedCount == 0 {
		return util.NotFoundf("vehicle %s not found", id)
	}
	return nil
}

func (r *vehicleRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		return fmt.Errorf("delete vehicle: %w", err)
	}
	return nil
}

func (r *vehicleRepository) findOneAndSet(ctx context.Context, id string, set bson.D) (*model.Vehicle, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc vehicleDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "_id", Value: id}}, bson.D{{Key: "$set", Value: set}}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, util.NotFoundf("vehicle %s not found", id)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	return doc.toModel(), nil
}
