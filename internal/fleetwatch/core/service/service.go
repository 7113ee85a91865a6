package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
)

// Service implements the fleet use cases: vehicle registry, alarm ledger,
// telemetry ingestion and operator access.
// It orchestrates the model entities and the ports.
type Service struct {
	vehicle core.VehicleRepository
	alarm   core.AlarmRepository
	user    core.UserRepository

	notifier core.AlarmNotifier
	mirror   core.StateMirror
	tokens   core.TokenIssuer
	hasher   core.PasswordHasher

	now   func() time.Time
	newID func() string
}

// Option customizes a Service.
type Option func(*Service)

// WithStateMirror sets the sink receiving vehicle state after each reading.
func WithStateMirror(m core.StateMirror) Option {
	return func(s *Service) { s.mirror = m }
}

// WithTokenIssuer sets the bearer token issuer used by Login.
func WithTokenIssuer(t core.TokenIssuer) Option {
	return func(s *Service) { s.tokens = t }
}

// WithPasswordHasher sets the hasher used for operator passwords.
func WithPasswordHasher(h core.PasswordHasher) Option {
	return func(s *Service) { s.hasher = h }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the generator of vehicle, alarm and user IDs.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// New creates the core service on top of a storage backend and an alarm notifier.
func New(repo core.Repository, notifier core.AlarmNotifier, opts ...Option) *Service {
	s := &Service{
		vehicle:  repo.Vehicle(),
		alarm:    repo.Alarm(),
		user:     repo.User(),
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    newTimeOrderedID,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// newTimeOrderedID returns a UUIDv7, whose lexical order follows creation time.
func newTimeOrderedID() string {
	return uuid.Must(uuid.NewV7()).String()
}
