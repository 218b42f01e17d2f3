package robot

import "context"

// Controller is the per-kind device surface a Task drives through the
// state machine. internal/robot/drone and internal/robot/ground each
// implement it over their own combination of agent.Handle and
// (for drones) radio.Handle, grounded on robot/mod.rs's Controllable
// trait and network/mod.rs's Device::Xbee / Device::Fernbedienung
// duality.
type Controller interface {
	Kind() Kind

	// Identify, Reboot, Halt are the Standby meta-commands, grounded
	// line-for-line on fernbedienung::Device's same-named operations.
	Identify(ctx context.Context) (string, error)
	Reboot(ctx context.Context) (bool, error)
	Halt(ctx context.Context) (bool, error)

	// Upload installs control software, transitioning Standby/Ready to
	// Ready on success. Grounded on robots/ssh.rs's
	// AddCtrlSoftware/ClearCtrlSoftware.
	Upload(ctx context.Context, bundle UploadBundle) (bool, error)

	// Clear removes previously uploaded control software at dir,
	// returning the robot to a clean Standby/Ready state. Grounded on
	// robots/ssh.rs's ClearCtrlSoftware.
	Clear(ctx context.Context, dir string) (bool, error)

	// Start launches the controller process, forwarding its stdout and
	// stderr onto the given sinks until it exits or Terminate fires.
	// terminate is closed by the Task on a Terminate or ForceKill
	// action; Start must return once the remote process has exited or
	// once it has sent whatever termination signal the remote side
	// requires.
	Start(ctx context.Context, spec RunSpec, terminate <-chan struct{}, stdout, stderr chan<- []byte) (bool, error)

	// Close releases every device handle the controller owns.
	Close() error
}
