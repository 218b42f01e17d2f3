// Package ground implements robot.Controller for ground robots: wheeled
// Linux devices reachable only over the framed multiplex protocol, with
// no radio coprocessor to bring up.
//
// Grounded on the same Controllable shape as internal/robot/drone, minus
// the radio leg, and on robots/ssh.rs's control-software
// upload/clear operations.
package ground

import (
	"context"

	"swarmctl/internal/agent"
	"swarmctl/internal/robot"
)

// Controller drives a ground robot over its agent.Handle only.
type Controller struct {
	agentDev *agent.Handle
}

func New(agentDev *agent.Handle) *Controller {
	return &Controller{agentDev: agentDev}
}

func (c *Controller) Kind() robot.Kind { return robot.KindGround }

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
	return c.agentDev.Close()
}
