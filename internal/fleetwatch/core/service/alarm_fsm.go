package service

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"github.com/fleetwatch-io/fleetwatch/internal/fleetwatch/core/model"
	fsmutil "github.com/fleetwatch-io/fleetwatch/internal/pkg/util/fsm"
)

const (
	// EventTakeCharge moves a new alarm into handling.
	EventTakeCharge = "take_charge"
	// EventResolve closes an alarm that is new or in handling.
	EventResolve = "resolve"
)

// alarmEvents maps a requested target state to the event that reaches it.
var alarmEvents = map[model.AlarmState]string{
	model.AlarmStateInHandling: EventTakeCharge,
	model.AlarmStateResolved:   EventResolve,
}

// alarmMachine drives the lifecycle of a single alarm.
// Callbacks expect Args = [time.Time, subject string].
type alarmMachine struct {
	*fsm.FSM
	alarm *model.Alarm
}

func newAlarmMachine(a *model.Alarm) *alarmMachine {
	m := &alarmMachine{alarm: a}

	events := fsm.Events{
		{Name: EventTakeCharge, Src: []string{string(model.AlarmStateNew)}, Dst: string(model.AlarmStateInHandling)},
		{Name: EventResolve, Src: []string{string(model.AlarmStateNew), string(model.AlarmStateInHandling)}, Dst: string(model.AlarmStateResolved)},
	}

	callbacks := fsm.Callbacks{
		// Side-Effects (enter_...): audit fields follow every accepted transition
		"enter_state":                               fsmutil.WrapEvent(m.actionStamp),
		"enter_" + string(model.AlarmStateResolved): fsmutil.WrapEvent(m.actionEnterResolved),
	}

	m.FSM = fsm.NewFSM(string(a.State), events, callbacks)
	return m
}

func (m *alarmMachine) actionStamp(ctx context.Context, e *fsm.Event) error {
	at, by := eventArgs(e)
	m.alarm.State = model.AlarmState(e.Dst)
	m.alarm.UpdatedAt = at
	m.alarm.UpdatedBy = by
	return nil
}

func (m *alarmMachine) actionEnterResolved(ctx context.Context, e *fsm.Event) error {
	at, _ := eventArgs(e)
	m.alarm.ResolvedAt = &at
	return nil
}

func eventArgs(e *fsm.Event) (time.Time, string) {
	var (
		at time.Time
		by string
	)
	if len(e.Args) > 0 {
		at, _ = e.Args[0].(time.Time)
	}
	if len(e.Args) > 1 {
		by, _ = e.Args[1].(string)
	}
	return at, by
}
