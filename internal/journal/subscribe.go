package journal

import (
	"time"

	"swarmctl/internal/eventbus"
	"swarmctl/internal/robot"
)

// Attach subscribes j to every robot lifecycle event bus carries and
// stops translating them into entries once unsubscribed. It is the
// journal's only consumer-side wiring; producers (robot.Task, the arena)
// never import this package directly.
func Attach(bus *eventbus.Bus, j *Journal) eventbus.Subscriber {
	sub := eventbus.NewSubscriber()
	bus.Subscribe(EventRobotStateChanged, sub, func(ev eventbus.Event) {
		payload, ok := ev.Data().(robot.StateChanged)
		if !ok {
			return
		}
		j.Append(Entry{
			Timestamp: time.Now(),
			SourceID:  payload.ID,
			Level:     LevelInfo,
			Kind:      ev.Type(),
			Payload:   payload,
		})
	})
	bus.Subscribe(EventRobotOutput, sub, func(ev eventbus.Event) {
		payload, ok := ev.Data().(robot.Output)
		if !ok {
			return
		}
		j.Append(Entry{
			Timestamp: time.Now(),
			SourceID:  payload.ID,
			Level:     LevelInfo,
			Kind:      ev.Type(),
			Payload:   payload,
		})
	})
	return sub
}

// EventRobotStateChanged and EventRobotOutput re-export robot's event
// kind strings so callers of Attach need not import internal/robot just
// to pass the right subscription key elsewhere.
const (
	EventRobotStateChanged = robot.EventStateChanged
	EventRobotOutput       = robot.EventOutput
)
