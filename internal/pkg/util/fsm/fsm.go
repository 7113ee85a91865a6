// Package fsm adapts error-returning callbacks to looplab/fsm.
package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// WrapEvent turns fn into an fsm.Callback. A non-nil error is stored on the
// event; inside a "before_" callback this cancels the transition and is
// returned from Event.
func WrapEvent(fn func(ctx context.Context, event *fsm.Event) error) fsm.Callback {
	return func(ctx context.Context, event *fsm.Event) {
		if err := fn(ctx, event); err != nil {
			event.Cancel(err)
		}
	}
}
