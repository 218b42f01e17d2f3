// Package arena implements the supervisor (spec.md §4.5, component E):
// a single-threaded event loop owning the fleet map and the experiment
// state machine. Every mutation — admission, command routing, robot-task
// completion, experiment transitions — flows through one goroutine's
// select loop, so the fleet map itself never needs its own lock.
//
// Grounded on shared/robot_manager/robot_manager.go's dual-indexed
// registry (generalized here from a passive map-plus-mutex into an
// owning event-loop actor, since spec.md §5's shared-resource policy
// requires the fleet to be mutated only by its single owning task) and
// on main.go's component-wiring shape.
package arena

import (
	"context"
	"fmt"

	"swarmctl/internal/eventbus"
	"swarmctl/internal/pool"
	"swarmctl/internal/robot"
	"swarmctl/internal/swarmerr"
)

// ExperimentState is spec.md §3's explicit experiment phase machine,
// supplementing webui.rs's Action enum (Start/Stop/Emergency) with the
// phases the distilled spec names but original_source/ dropped.
// ExperimentPreparing is declared but no transition enters it: ActionStart
// moves the experiment from Idle straight to Running.
type ExperimentState string

const (
	ExperimentIdle      ExperimentState = "idle"
	ExperimentPreparing ExperimentState = "preparing"
	ExperimentRunning   ExperimentState = "running"
	ExperimentStopping  ExperimentState = "stopping"
)

// ExperimentAction is a directive issued by the UI against the
// experiment machine.
type ExperimentAction string

const (
	ActionStart     ExperimentAction = "start"
	ActionStop      ExperimentAction = "stop"
	ActionEmergency ExperimentAction = "emergency"
)

// EventExperimentChanged is published whenever the experiment transitions.
const EventExperimentChanged = "arena.experiment_changed"

// ExperimentChanged is EventExperimentChanged's payload.
type ExperimentChanged struct {
	From   ExperimentState
	To     ExperimentState
	Reason string
}

type fleetEntry struct {
	task *robot.Task
	addr string
	kind robot.Kind
}

type addRequest struct {
	id    string
	addr  string
	ctrl  robot.Controller
	reply chan<- error
}

type commandRequest struct {
	id    string
	cmd   robot.Command
	reply chan<- error
}

type experimentRequest struct {
	action ExperimentAction
	reply  chan<- error
}

type queryRequest struct {
	reply chan<- []robot.Record
}

// Arena is the admission/command/experiment supervisor. Construct with
// New and run it with Run in its own goroutine; every exported method is
// safe to call concurrently and communicates with the loop over channels.
type Arena struct {
	pool *pool.Pool
	bus  *eventbus.Bus

	addCh   chan addRequest
	cmdCh   chan commandRequest
	expCh   chan experimentRequest
	queryCh chan queryRequest
	doneCh  chan string
	stateCh chan robot.StateChanged

	fleet      map[string]*fleetEntry
	experiment ExperimentState
}

func New(p *pool.Pool, bus *eventbus.Bus) *Arena {
	a := &Arena{
		pool:       p,
		bus:        bus,
		addCh:      make(chan addRequest),
		cmdCh:      make(chan commandRequest),
		expCh:      make(chan experimentRequest),
		queryCh:    make(chan queryRequest),
		doneCh:     make(chan string, 16),
		stateCh:    make(chan robot.StateChanged, 16),
		fleet:      make(map[string]*fleetEntry),
		experiment: ExperimentIdle,
	}
	if bus != nil {
		sub := eventbus.NewSubscriber()
		bus.Subscribe(robot.EventStateChanged, sub, func(ev eventbus.Event) {
			if sc, ok := ev.Data().(robot.StateChanged); ok {
				select {
				case a.stateCh <- sc:
				default:
				}
			}
		})
	}
	return a
}

// AddRobot admits a robot discovered at addr, spawning its task. It
// blocks until the arena loop has processed the admission.
func (a *Arena) AddRobot(ctx context.Context, id, addr string, ctrl robot.Controller) error {
	reply := make(chan error, 1)
	select {
	case a.addCh <- addRequest{id: id, addr: addr, ctrl: ctrl, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Command routes cmd to the robot id's task. Unknown id yields
// swarmerr.ErrRobotNotFound, per spec.md §4.5.
func (a *Arena) Command(ctx context.Context, id string, cmd robot.Command) error {
	reply := make(chan error, 1)
	select {
	case a.cmdCh <- commandRequest{id: id, cmd: cmd, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Experiment directs the experiment state machine.
func (a *Arena) Experiment(ctx context.Context, action ExperimentAction) error {
	reply := make(chan error, 1)
	select {
	case a.expCh <- experimentRequest{action: action, reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Records returns a snapshot of every currently admitted robot, for the
// UI's tabular card-list.
func (a *Arena) Records(ctx context.Context) ([]robot.Record, error) {
	reply := make(chan []robot.Record, 1)
	select {
	case a.queryCh <- queryRequest{reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case recs := <-reply:
		return recs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Run is the event loop. It returns once ctx is cancelled, after
// cancelling every admitted robot task's context.
func (a *Arena) Run(ctx context.Context) {
	taskCtx, cancelTasks := context.WithCancel(ctx)
	defer cancelTasks()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-a.addCh:
			req.reply <- a.handleAdd(taskCtx, req)
		case req := <-a.cmdCh:
			req.reply <- a.handleCommand(req)
		case req := <-a.expCh:
			req.reply <- a.handleExperiment(req)
		case req := <-a.queryCh:
			req.reply <- a.snapshot()
		case id := <-a.doneCh:
			a.handleTaskDone(id)
		case sc := <-a.stateCh:
			a.handleStateChanged(sc)
		}
	}
}

// handleStateChanged closes spec.md §3's Stopping→Idle leg: once every
// admitted robot has left Running, a Stopping experiment settles back to
// Idle.
func (a *Arena) handleStateChanged(sc robot.StateChanged) {
	if a.experiment != ExperimentStopping {
		return
	}
	for _, entry := range a.fleet {
		if entry.task.State() == robot.StateRunning {
			return
		}
	}
	a.setExperiment(ExperimentIdle, "stopped")
}

func (a *Arena) handleAdd(ctx context.Context, req addRequest) error {
	if _, exists := a.fleet[req.id]; exists {
		return swarmerr.ErrRobotAlreadyPresent
	}
	switch req.ctrl.Kind() {
	case robot.KindDrone, robot.KindGround:
	default:
		return fmt.Errorf("%w: %q", swarmerr.ErrInvalidRobotKind, req.ctrl.Kind())
	}
	task := robot.New(req.id, req.addr, req.ctrl, a.bus)
	a.fleet[req.id] = &fleetEntry{task: task, addr: req.addr, kind: req.ctrl.Kind()}

	// The address is now held by this robot task rather than the pool's
	// concern (spec.md §3); it is not the pool's to hand out again until
	// the task ends and handleTaskDone calls Release.
	a.pool.Remove(req.addr)

	go task.Run(ctx)
	go func() {
		<-task.Done()
		a.doneCh <- req.id
	}()
	return nil
}

func (a *Arena) handleCommand(req commandRequest) error {
	entry, ok := a.fleet[req.id]
	if !ok {
		return swarmerr.ErrRobotNotFound
	}
	return entry.task.Enqueue(req.cmd)
}

func (a *Arena) handleExperiment(req experimentRequest) error {
	switch req.action {
	case ActionStart:
		if a.experiment != ExperimentIdle {
			return swarmerr.ErrExperimentNotIdle
		}
		for _, entry := range a.fleet {
			if entry.task.State() != robot.StateReady {
				return fmt.Errorf("arena: robot %s not ready: %w", entry.task.ID(), swarmerr.ErrBadRequest)
			}
		}
		a.setExperiment(ExperimentRunning, "start")
		for _, entry := range a.fleet {
			entry.task.Enqueue(robot.Command{Action: robot.ActionStart})
		}
		return nil
	case ActionStop:
		if a.experiment != ExperimentRunning {
			return fmt.Errorf("arena: experiment not running: %w", swarmerr.ErrBadRequest)
		}
		a.setExperiment(ExperimentStopping, "stop")
		a.terminateAllRunning()
		return nil
	case ActionEmergency:
		a.terminateAllRunning()
		a.setExperiment(ExperimentIdle, "emergency")
		return nil
	default:
		return fmt.Errorf("arena: unknown experiment action %q: %w", req.action, swarmerr.ErrBadRequest)
	}
}

func (a *Arena) terminateAllRunning() {
	for _, entry := range a.fleet {
		if entry.task.State() == robot.StateRunning {
			entry.task.Enqueue(robot.Command{Action: robot.ActionTerminate})
		}
	}
}

func (a *Arena) handleTaskDone(id string) {
	entry, ok := a.fleet[id]
	if !ok {
		return
	}
	delete(a.fleet, id)
	a.pool.Release(entry.addr)

	if a.experiment == ExperimentRunning || a.experiment == ExperimentPreparing {
		a.setExperiment(ExperimentStopping, "participant_lost")
	}
}

func (a *Arena) setExperiment(to ExperimentState, reason string) {
	from := a.experiment
	a.experiment = to
	if a.bus != nil {
		a.bus.PublishData(EventExperimentChanged, ExperimentChanged{From: from, To: to, Reason: reason})
	}
}

func (a *Arena) snapshot() []robot.Record {
	out := make([]robot.Record, 0, len(a.fleet))
	for _, entry := range a.fleet {
		out = append(out, entry.task.Record())
	}
	return out
}
