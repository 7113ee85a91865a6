// Package notifier delivers alarm events to operators and downstream systems.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core"
	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	"github.com/fleetwatch-io/fleetwatch/internal/pkg/metrics"
	"github.com/fleetwatch-io/fleetwatch/pkg/log"
)

var (
	_ core.AlarmNotifier = (*Fanout)(nil)
	_ core.AlarmNotifier = (*Async)(nil)
)

// ErrQueueFull is returned by Async.Notify when the event could not be queued.
var ErrQueueFull = errors.New("notification queue full")

// ErrClosed is returned by Async.Notify after Close.
var ErrClosed = errors.New("notifier closed")

// Sink is a named notifier.
type Sink struct {
	Name     string
	Notifier core.AlarmNotifier
}

// Fanout hands every event to each sink in turn.
// Failing sinks are counted and reported together; the remaining sinks still receive the event.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Notify(ctx context.Context, event *model.AlarmEvent) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Notifier.Notify(ctx, event); err != nil {
			metrics.NotificationsDropped.WithLabelValues(s.Name).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	return utilerrors.NewAggregate(errs)
}

// Async decouples a slow notifier from the caller with a bounded queue
// drained by one goroutine. Each delivery is bounded by a timeout.
type Async struct {
	name    string
	next    core.AlarmNotifier
	queue   chan *model.AlarmEvent
	timeout time.Duration

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewAsync starts the worker of an Async notifier wrapping next.
func NewAsync(name string, next core.AlarmNotifier, size int, timeout time.Duration) *Async {
	a := &Async{
		name:    name,
		next:    next,
		queue:   make(chan *model.AlarmEvent, size),
		timeout: timeout,
		done:    make(chan struct{}),
	}

	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Async) Notify(_ context.Context, event *model.AlarmEvent) error {
	select {
	case <-a.done:
		return ErrClosed
	default:
	}

	select {
	case a.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the worker. Queued events that were not yet delivered are discarded.
func (a *Async) Close() {
	a.closeOnce.Do(func() { close(a.done) })
	a.wg.Wait()
}

func (a *Async) run() {
	defer a.wg.Done()

	for {
		select {
		case <-a.done:
			return
		case event := <-a.queue:
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			if err := a.next.Notify(ctx, event); err != nil {
				metrics.NotificationsDropped.WithLabelValues(a.name).Inc()
				log.Error(err, "Alarm notification failed", "sink", a.name, "alarmID", event.AlarmID)
			}
			cancel()
		}
	}
}
