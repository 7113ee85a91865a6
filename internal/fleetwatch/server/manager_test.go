package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type blockingServer struct{ stopped chan struct{} }

func (b *blockingServer) Start(ctx context.Context) error {
	<-ctx.Done()
	close(b.stopped)
	return nil
}

type failingServer struct{}

func (failingServer) Start(context.Context) error { return errors.New("bind: address already in use") }

func TestManagerFailureCancelsSiblings(t *testing.T) {
	b := &blockingServer{stopped: make(chan struct{})}
	m := NewManagerFor(b, failingServer{})

	err := m.Start(context.Background())
	assert.EqualError(t, err, "bind: address already in use")

	select {
	case <-b.stopped:
	case <-time.After(time.Second):
		t.Fatal("sibling server was not cancelled")
	}
}

func TestManagerStopsOnCancel(t *testing.T) {
	b := &blockingServer{stopped: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, NewManagerFor(b).Start(ctx))
}
