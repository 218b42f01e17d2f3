// Package robot implements the robot state machine (spec.md §4.4,
// component D): each robot is a long-lived task owning its device
// handle(s), an inbound command queue, and a small explicit state
// machine — Standby → Ready → Running → Stopping → Standby, with a
// parallel Faulted absorbing terminal-error transitions.
//
// Grounded on shared/robot_manager (registry halves generalized into the
// arena's fleet map, not duplicated here) and shared/state.go's
// factory-of-kinds registration idiom, narrowed from an open robot-type
// registry to the two-member closed set spec.md §3 names: KindDrone and
// KindGround. shared/base_robot.go's embeddable common-fields pattern
// grounds Record.
package robot

import "time"

// Kind is the closed set of robot categories this supervisor drives.
type Kind string

const (
	KindDrone  Kind = "drone"
	KindGround Kind = "ground"
)

// State is one node of spec.md §4.4's explicit state machine.
type State string

const (
	StateStandby  State = "standby"
	StateReady    State = "ready"
	StateRunning  State = "running"
	StateStopping State = "stopping"
	StateFaulted  State = "faulted"
)

// Action is a command a caller may direct at a robot task.
type Action string

const (
	ActionIdentify   Action = "identify"
	ActionReboot     Action = "reboot"
	ActionHalt       Action = "halt"
	ActionUpload    Action = "upload"
	ActionClear     Action = "clear"
	ActionStart     Action = "start"
	ActionTerminate Action = "terminate"
	ActionForceKill Action = "force_kill"
)

// admissible enumerates, per state, the set of actions spec.md §4.4
// permits. Any action not present here is rejected with BadRequest
// without a state change.
var admissible = map[State]map[Action]bool{
	StateStandby: {
		ActionIdentify: true,
		ActionReboot:   true,
		ActionHalt:     true,
		ActionUpload:   true,
		ActionClear:    true,
	},
	StateReady: {
		ActionIdentify: true,
		ActionReboot:   true,
		ActionHalt:     true,
		ActionUpload:   true,
		ActionClear:    true,
		ActionStart:    true,
	},
	StateRunning: {
		ActionIdentify:  true,
		ActionTerminate: true,
	},
	StateStopping: {
		ActionForceKill: true,
	},
	StateFaulted: {},
}

// Admissible reports whether action may be issued while in state.
func Admissible(state State, action Action) bool {
	return admissible[state][action]
}

// UploadBundle is the control-software payload carried by an Upload
// command, supplemented from robots/ssh.rs's AddCtrlSoftware operation.
type UploadBundle struct {
	Dir      string
	Filename string
	Contents []byte
}

// RunSpec names the controller process Start launches on the robot,
// generalized from the command-line each robot controller binary needs.
type RunSpec struct {
	Target     string
	WorkingDir string
	Args       []string
}

// Command is one inbound directive routed to a robot task's queue by the
// arena. Reply, if non-nil, receives one value: nil on success, the
// rejection error (swarmerr.ErrBadRequest) if the action was inadmissible
// in the robot's current state, or the controller's error if the action
// failed. For Start, nil is sent once the process has been launched.
type Command struct {
	Action   Action
	Upload   UploadBundle
	ClearDir string
	Run      RunSpec
	Reply    chan<- error
}

// Record is the fleet-map entry the arena stores for an admitted robot —
// the "GetBaseRobot snapshot" idiom of shared/base_robot.go, narrowed to
// the fields the arena and UI actually need.
type Record struct {
	ID       string
	Addr     string
	Kind     Kind
	State    State
	LastSeen time.Time
}
