package robot

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"swarmctl/internal/datastructures"
	"swarmctl/internal/eventbus"
	"swarmctl/internal/logging"
	"swarmctl/internal/swarmerr"
)

// EventStateChanged and EventOutput name the journal-bound events a Task
// publishes, consumed by internal/journal (component F); the arena also
// subscribes to EventStateChanged.
const (
	EventStateChanged = "robot.state_changed"
	EventOutput       = "robot.output"
)

// StateChanged is EventStateChanged's payload.
type StateChanged struct {
	ID   string
	From State
	To   State
}

// Output is EventOutput's payload — one chunk of a running controller
// process's stdout or stderr.
type Output struct {
	ID     string
	Stream string // "stdout" or "stderr"
	Bytes  []byte
}

// Task is the long-lived goroutine owning one robot's Controller, inbound
// command queue, and state machine. Grounded on
// shared/robot_manager/robot.go's per-robot handler goroutine shape,
// generalized from a connection handler into a full state-machine task
// per spec.md §4.4.
type Task struct {
	id    string
	addr  string
	kind  Kind
	ctrl  Controller
	bus   *eventbus.Bus
	inbox *datastructures.SafeQueue[Command]

	state atomic.Value // State

	mu      sync.Mutex
	lastErr error

	done chan struct{}
}

func New(id, addr string, ctrl Controller, bus *eventbus.Bus) *Task {
	t := &Task{
		id:    id,
		addr:  addr,
		kind:  ctrl.Kind(),
		ctrl:  ctrl,
		bus:   bus,
		inbox: datastructures.NewSafeQueue[Command](true),
		done:  make(chan struct{}),
	}
	t.state.Store(StateStandby)
	return t
}

func (t *Task) ID() string   { return t.id }
func (t *Task) Addr() string { return t.addr }
func (t *Task) Kind() Kind   { return t.kind }

func (t *Task) State() State {
	return t.state.Load().(State)
}

func (t *Task) Record() Record {
	return Record{ID: t.id, Addr: t.addr, Kind: t.kind, State: t.State()}
}

// Done reports when the task has exited — spec.md §4.5's trigger for the
// arena to release the task's address back to the pool and drop its
// record.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the reason the task exited, once Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

// Enqueue routes a command to the task. It never blocks indefinitely on
// an unresponsive task: if the task has already exited, it reports
// swarmerr.ErrRobotNotFound immediately.
func (t *Task) Enqueue(cmd Command) error {
	select {
	case <-t.done:
		return swarmerr.ErrRobotNotFound
	default:
	}
	t.inbox.Enqueue(cmd)
	return nil
}

func (t *Task) transition(to State) {
	from := t.State()
	t.state.Store(to)
	if t.bus != nil {
		t.bus.PublishData(EventStateChanged, StateChanged{ID: t.id, From: from, To: to})
	}
}

func (t *Task) fail(cause error) {
	t.mu.Lock()
	t.lastErr = cause
	t.mu.Unlock()
	t.transition(StateFaulted)
}

// Run drives the state machine until ctx is cancelled or the task faults.
// A fault ends the task at once, without waiting for another command; the
// closed Done channel is the arena's signal to release the address.
func (t *Task) Run(ctx context.Context) {
	defer close(t.done)
	defer t.ctrl.Close()

	cmds := recvLoop(t.inbox, t.done)

	for {
		select {
		case <-ctx.Done():
			t.fail(fmt.Errorf("robot: context cancelled: %w", ctx.Err()))
			return
		case cmd, ok := <-cmds:
			if !ok {
				return
			}
			if t.State() == StateFaulted {
				return
			}
			t.handle(ctx, cmd, cmds)
			if t.State() == StateFaulted {
				return
			}
		}
	}
}

func (t *Task) handle(ctx context.Context, cmd Command, cmds <-chan Command) {
	if !Admissible(t.State(), cmd.Action) {
		t.reply(cmd, fmt.Errorf("robot: %s inadmissible in state %s: %w", cmd.Action, t.State(), swarmerr.ErrBadRequest))
		return
	}

	switch cmd.Action {
	case ActionIdentify:
		_, err := t.ctrl.Identify(ctx)
		t.reply(cmd, err)
	case ActionReboot:
		_, err := t.ctrl.Reboot(ctx)
		t.reply(cmd, err)
	case ActionHalt:
		_, err := t.ctrl.Halt(ctx)
		t.reply(cmd, err)
	case ActionUpload:
		ok, err := t.ctrl.Upload(ctx, cmd.Upload)
		if err != nil || !ok {
			t.reply(cmd, err)
			return
		}
		t.transition(StateReady)
		t.reply(cmd, nil)
	case ActionClear:
		_, err := t.ctrl.Clear(ctx, cmd.ClearDir)
		if err == nil && t.State() == StateReady {
			t.transition(StateStandby)
		}
		t.reply(cmd, err)
	case ActionStart:
		t.startControllerProcess(ctx, cmd, cmds)
	case ActionTerminate:
		// handled by startControllerProcess's select loop, which closes
		// its terminate channel; nothing to do here beyond acknowledging.
		t.reply(cmd, nil)
	case ActionForceKill:
		t.reply(cmd, nil)
		t.fail(fmt.Errorf("robot: force-killed"))
	default:
		t.reply(cmd, fmt.Errorf("robot: unknown action %q: %w", cmd.Action, swarmerr.ErrBadRequest))
	}
}

// startControllerProcess runs Controller.Start synchronously within the
// state machine loop: only Identify and Terminate are admissible while
// Running and only ForceKill while Stopping, so the task loop blocks here and continues
// draining its inbox through a nested select rather than returning
// control before the process settles.
func (t *Task) startControllerProcess(ctx context.Context, startCmd Command, cmds <-chan Command) {
	terminate := make(chan struct{})
	stdout := make(chan []byte, 16)
	stderr := make(chan []byte, 16)

	t.transition(StateRunning)
	t.reply(startCmd, nil)

	forwardDone := make(chan struct{})
	go func() {
		defer close(forwardDone)
		for {
			select {
			case chunk, ok := <-stdout:
				if !ok {
					stdout = nil
					continue
				}
				t.publishOutput("stdout", chunk)
			case chunk, ok := <-stderr:
				if !ok {
					stderr = nil
					continue
				}
				t.publishOutput("stderr", chunk)
			}
			if stdout == nil && stderr == nil {
				return
			}
		}
	}()

	resultCh := make(chan error, 1)
	go func() {
		_, err := t.ctrl.Start(ctx, startCmd.Run, terminate, stdout, stderr)
		close(stdout)
		close(stderr)
		resultCh <- err
	}()

	for {
		select {
		case err := <-resultCh:
			<-forwardDone
			if err != nil {
				t.fail(err)
				return
			}
			t.transition(StateStandby)
			return
		case cmd, ok := <-cmds:
			if !ok {
				<-resultCh
				<-forwardDone
				return
			}
			switch cmd.Action {
			case ActionTerminate:
				if t.State() == StateRunning {
					t.transition(StateStopping)
					close(terminate)
				}
				t.reply(cmd, nil)
			case ActionForceKill:
				if t.State() != StateStopping {
					t.reply(cmd, fmt.Errorf("robot: force_kill inadmissible in state %s: %w", t.State(), swarmerr.ErrBadRequest))
					continue
				}
				t.reply(cmd, nil)
				<-resultCh
				<-forwardDone
				t.fail(fmt.Errorf("robot: force-killed while stopping"))
				return
			case ActionIdentify:
				if t.State() == StateRunning {
					_, err := t.ctrl.Identify(ctx)
					t.reply(cmd, err)
					continue
				}
				t.reply(cmd, fmt.Errorf("robot: %s inadmissible in state %s: %w", cmd.Action, t.State(), swarmerr.ErrBadRequest))
			default:
				t.reply(cmd, fmt.Errorf("robot: %s inadmissible in state %s: %w", cmd.Action, t.State(), swarmerr.ErrBadRequest))
			}
		}
	}
}

func (t *Task) publishOutput(stream string, chunk []byte) {
	if t.bus == nil {
		return
	}
	t.bus.PublishData(EventOutput, Output{ID: t.id, Stream: stream, Bytes: chunk})
}

func (t *Task) reply(cmd Command, err error) {
	if cmd.Reply == nil {
		if err != nil {
			logging.Errorf(err)
		}
		return
	}
	select {
	case cmd.Reply <- err:
	default:
	}
}

// recvLoop adapts a blocking SafeQueue.Read into a channel so it composes
// with select alongside context cancellation and other signals — the
// idiomatic Go rendering of what tokio::select! gets for free over a
// Rust mpsc receiver. Mirrors internal/agent's recvLoop helper.
func recvLoop(q *datastructures.SafeQueue[Command], end <-chan struct{}) <-chan Command {
	out := make(chan Command)
	go func() {
		defer close(out)
		for {
			v, ok := q.Read(true, end)
			if !ok {
				return
			}
			select {
			case out <- v:
			case <-end:
				return
			}
		}
	}()
	return out
}
