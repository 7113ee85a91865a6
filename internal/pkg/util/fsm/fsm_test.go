package fsm

import (
	"context"
	"errors"
	"testing"

	"github.com/looplab/fsm"
	"github.com/stretchr/testify/assert"
)

func TestWrapEventCancelsTransition(t *testing.T) {
	guard := errors.New("guard rejected")

	f := fsm.NewFSM("closed",
		fsm.Events{{Name: "open", Src: []string{"closed"}, Dst: "open"}},
		fsm.Callbacks{
			"before_open": WrapEvent(func(ctx context.Context, e *fsm.Event) error { return guard }),
		},
	)

	err := f.Event(context.Background(), "open")
	assert.Error(t, err)
	assert.Equal(t, "closed", f.Current())
}

func TestWrapEventPassesThrough(t *testing.T) {
	entered := false

	f := fsm.NewFSM("closed",
		fsm.Events{{Name: "open", Src: []string{"closed"}, Dst: "open"}},
		fsm.Callbacks{
			"enter_open": WrapEvent(func(ctx context.Context, e *fsm.Event) error {
				entered = true
				return nil
			}),
		},
	)

	assert.NoError(t, f.Event(context.Background(), "open"))
	assert.True(t, entered)
	assert.Equal(t, "open", f.Current())
}
