// Package drone implements robot.Controller for drones: robots carrying
// both a radio coprocessor (bring-up only) and a companion computer
// reachable over the framed multiplex protocol.
//
// Grounded on robots/pipuck.rs's dual-device layout and network/mod.rs's
// Device::Xbee / Device::Fernbedienung duality — the radio leg is present
// only to confirm the companion powered on; every command this Controller
// executes flows through the agent link, exactly as fernbedienung's own
// Device methods do.
package drone

import (
	"context"

	"swarmctl/internal/agent"
	"swarmctl/internal/radio"
	"swarmctl/internal/robot"
)

// Controller drives a drone over its agent.Handle. Its radio.Handle is
// kept only so Close releases both links; nothing here talks to it
// beyond the bring-up discovery already performed before the robot task
// was spawned.
type Controller struct {
	radioDev *radio.Handle
	agentDev *agent.Handle
}

func New(radioDev *radio.Handle, agentDev *agent.Handle) *Controller {
	return &Controller{radioDev: radioDev, agentDev: agentDev}
}

func (c *Controller) Kind() robot.Kind { return robot.KindDrone }

func (c *Controller) Identify(ctx context.Context) (string, error) {
	return c.agentDev.Hostname(ctx)
}

func (c *Controller) Reboot(ctx context.Context) (bool, error) {
	return c.agentDev.Reboot(ctx)
}

func (c *Controller) Halt(ctx context.Context) (bool, error) {
	return c.agentDev.Halt(ctx)
}

func (c *Controller) Upload(ctx context.Context, bundle robot.UploadBundle) (bool, error) {
	return c.agentDev.Upload(ctx, bundle.Dir, bundle.Filename, bundle.Contents)
}

func (c *Controller) Clear(ctx context.Context, dir string) (bool, error) {
	return c.agentDev.Run(ctx, agent.RunRequest{Target: "rm", WorkingDir: "/tmp", Args: []string{"-rf", dir}})
}

func (c *Controller) Start(ctx context.Context, spec robot.RunSpec, terminate <-chan struct{}, stdout, stderr chan<- []byte) (bool, error) {
	return c.agentDev.Run(ctx, agent.RunRequest{
		Target:     spec.Target,
		WorkingDir: spec.WorkingDir,
		Args:       spec.Args,
		Terminate:  terminate,
		Stdout:     stdout,
		Stderr:     stderr,
	})
}

func (c *Controller) Close() error {
	agentErr := c.agentDev.Close()
	radioErr := c.radioDev.Close()
	if agentErr != nil {
		return agentErr
	}
	return radioErr
}
