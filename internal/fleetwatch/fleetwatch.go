// Package fleetwatch assembles the fleet monitoring server from its adapters.
package fleetwatch

import (
	"context"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/server"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

const cleanupTimeout = 10 * time.Second

// FleetServer is the main application struct.
type FleetServer struct {
	serverManager *server.Manager

	// closers release resources in reverse order of acquisition.
	closers []func(ctx context.Context) error
}

// Run starts the servers and blocks until ctx is cancelled or a server fails.
func (s *FleetServer) Run(ctx context.Context) error {
	log.Info("Starting Fleetwatch Application...")
	defer s.cleanup()

	return s.serverManager.Start(ctx)
}

func (s *FleetServer) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil

	if err := utilerrors.NewAggregate(errs); err != nil {
		log.Error(err, "Cleanup incomplete")
	}
	log.Info("Fleetwatch stopped")
	_ = log.Sync()
}
