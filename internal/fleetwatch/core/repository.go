package core

import (
	"context"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
)

// VehicleRepository persists vehicles.
// Lookups of absent records return an error wrapping util.ErrNotFound;
// plate collisions return an error wrapping util.ErrConflict.
type VehicleRepository interface {
	// Create stores a new vehicle.
	Create(ctx context.Context, v *model.Vehicle) error

	// Get retrieves a vehicle by its ID.
	Get(ctx context.Context, id string) (*model.Vehicle, error)

	// GetByPlate retrieves a vehicle by its plate.
	GetByPlate(ctx context.Context, plate string) (*model.Vehicle, error)

	// List returns every vehicle in registration order.
	List(ctx context.Context) ([]*model.Vehicle, error)

	// Update applies the non-nil fields of u and returns the stored vehicle.
	Update(ctx context.Context, id string, u *model.VehicleUpdate) (*model.Vehicle, error)

	// ApplyTelemetry writes the telemetry fields and the derived status.
	ApplyTelemetry(ctx context.Context, id string, t *model.TelemetryUpdate) (*model.Vehicle, error)

	// SetStatus overwrites the derived status only.
	SetStatus(ctx context.Context, id string, status model.VehicleStatus) error

	// Delete removes a vehicle. Deleting an absent vehicle is not an error.
	Delete(ctx context.Context, id string) error
}

// AlarmRepository persists alarms.
type AlarmRepository interface {
	// Create stores a new alarm.
	Create(ctx context.Context, a *model.Alarm) error

	// Get retrieves an alarm by its ID.
	Get(ctx context.Context, id string) (*model.Alarm, error)

	// List returns every alarm, newest first. Ties on CreatedAt are broken by ID, descending.
	List(ctx context.Context) ([]*model.Alarm, error)

	// UpdateState replaces the lifecycle fields of an alarm provided its
	// stored state still equals from. Otherwise it returns util.ErrConflict.
	UpdateState(ctx context.Context, a *model.Alarm, from model.AlarmState) error

	// CountOpen counts alarms of a vehicle in state new or in-handling.
	CountOpen(ctx context.Context, vehicleID string) (int64, error)

	// DeleteByVehicle removes every alarm of a vehicle.
	DeleteByVehicle(ctx context.Context, vehicleID string) error
}

// UserRepository persists operator accounts.
type UserRepository interface {
	// Create stores a new user; a duplicate email yields util.ErrConflict.
	Create(ctx context.Context, u *model.User) error

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*model.User, error)
}

// Repository groups the repositories of one storage backend.
type Repository interface {
	Vehicle() VehicleRepository
	Alarm() AlarmRepository
	User() UserRepository

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend's resources.
	Close(ctx context.Context) error
}
