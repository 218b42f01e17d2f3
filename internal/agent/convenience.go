package agent

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"swarmctl/internal/swarmerr"
)

var linkStrengthPattern = regexp.MustCompile(`signal:\s+(-\d+)\s+dBm`)

// runCapture runs target with args in workingDir and collects its stdout,
// the shape every convenience operation below builds on (they all reduce
// to "run a command, read back one line of stdout").
func (h *Handle) runCapture(ctx context.Context, target, workingDir string, args []string) ([]byte, bool, error) {
	stdout := make(chan []byte, 16)
	done := make(chan struct{})
	var buf bytes.Buffer
	go func() {
		defer close(done)
		for chunk := range stdout {
			buf.Write(chunk)
		}
	}()

	exitOK, err := h.Run(ctx, RunRequest{Target: target, WorkingDir: workingDir, Args: args, Stdout: stdout})
	close(stdout)
	<-done
	if err != nil {
		return nil, false, err
	}
	return buf.Bytes(), exitOK, nil
}

// CreateTempDir creates a temporary directory on the agent and returns its
// path. Grounded on fernbedienung::Device::create_temp_dir.
func (h *Handle) CreateTempDir(ctx context.Context) (string, error) {
	out, exitOK, err := h.runCapture(ctx, "mktemp", "/tmp", []string{"-d"})
	if err != nil {
		return "", err
	}
	if !exitOK {
		return "", swarmerr.ErrExecute
	}
	return strings.TrimSpace(string(out)), nil
}

// Hostname reports the agent's hostname. Grounded on
// fernbedienung::Device::hostname.
func (h *Handle) Hostname(ctx context.Context) (string, error) {
	out, exitOK, err := h.runCapture(ctx, "hostname", "/tmp", nil)
	if err != nil {
		return "", err
	}
	if !exitOK {
		return "", swarmerr.ErrExecute
	}
	return strings.TrimSpace(string(out)), nil
}

// Halt asks the agent to power off. Grounded on fernbedienung::Device::halt
// — a stand-in shell command in both the original and here, since the real
// halt command requires privileges the agent process may not carry.
func (h *Handle) Halt(ctx context.Context) (bool, error) {
	return h.Run(ctx, RunRequest{Target: "echo", WorkingDir: "/tmp", Args: []string{"halt"}})
}

// Reboot asks the agent to restart. Grounded on
// fernbedienung::Device::reboot.
func (h *Handle) Reboot(ctx context.Context) (bool, error) {
	return h.Run(ctx, RunRequest{Target: "echo", WorkingDir: "/tmp", Args: []string{"reboot"}})
}

// LinkStrength reports the agent's wlan0 signal strength in dBm, parsed
// from `iw dev wlan0 link` output. Grounded on
// fernbedienung::Device::link_strength and its REGEX_LINK_STRENGTH.
func (h *Handle) LinkStrength(ctx context.Context) (int, error) {
	out, exitOK, err := h.runCapture(ctx, "iw", "/tmp", []string{"dev", "wlan0", "link"})
	if err != nil {
		return 0, err
	}
	if !exitOK {
		return 0, swarmerr.ErrExecute
	}
	match := linkStrengthPattern.FindSubmatch(out)
	if match == nil {
		return 0, fmt.Errorf("agent: link strength: %w", swarmerr.ErrDecode)
	}
	var dBm int
	if _, err := fmt.Sscanf(string(match[1]), "%d", &dBm); err != nil {
		return 0, fmt.Errorf("agent: link strength: %w", swarmerr.ErrDecode)
	}
	return dBm, nil
}

// Snapshot captures a single still frame from the agent's camera, a
// SPEC_FULL supplemented feature grounded on robots/pipuck.rs's snapshot
// action and components-camera-client.go's single-frame capture pattern:
// start a stream, take the first frame, fire Stop and return the frame. The
// deferred cancel then ends the stream driver, so the Stop request reaches
// the agent only if the driver observes Stop before the cancellation.
func (h *Handle) Snapshot(ctx context.Context) ([]byte, error) {
	frames := make(chan []byte, 1)
	stop := make(chan struct{})

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.Stream(streamCtx, StreamRequest{Kind: "camera", Stop: stop, Frames: frames})
	}()

	select {
	case frame := <-frames:
		close(stop)
		return frame, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
