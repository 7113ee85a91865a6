package core

import (
	"context"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
)

// AlarmNotifier announces newly raised alarms.
// Implementations must not block the caller on slow receivers.
type AlarmNotifier interface {
	Notify(ctx context.Context, event *model.AlarmEvent) error
}

// StateMirror receives the vehicle state after every applied reading,
// e.g. to feed a live map. Failures never affect ingestion.
type StateMirror interface {
	MirrorVehicle(ctx context.Context, v *model.Vehicle) error
}

// TokenIssuer issues bearer tokens for authenticated operators.
type TokenIssuer interface {
	Issue(subject, role string) (string, error)
}

// PasswordHasher hashes and checks operator passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) (bool, error)
}
