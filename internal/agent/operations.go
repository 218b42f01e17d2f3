package agent

import (
	"context"
	"fmt"

	"swarmctl/internal/logging"
	"swarmctl/internal/swarmerr"
	"swarmctl/internal/wire"

	"github.com/google/uuid"
)

// Upload writes contents to filename under path on the agent's filesystem,
// returning whether the agent reported success. Grounded on
// fernbedienung::Device::upload.
func (h *Handle) Upload(ctx context.Context, path, filename string, contents []byte) (bool, error) {
	id := uuid.New()
	sink := h.registerCorrelator(id)
	defer h.releaseCorrelator(id)

	req, err := wire.NewRequest(id, wire.KindUpload, wire.UploadPayload{Path: path, Filename: filename, Bytes: contents})
	if err != nil {
		return false, fmt.Errorf("agent: upload: %w", err)
	}
	if err := h.send(req); err != nil {
		return false, err
	}

	resp := recvLoop(sink, h.closed)
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case env, ok := <-resp:
		if !ok {
			return false, swarmerr.ErrResponse
		}
		switch env.Kind {
		case wire.KindOk:
			return true, nil
		case wire.KindError:
			var p wire.ErrorPayload
			env.Decode(&p)
			return false, fmt.Errorf("agent: upload: %w: %s", swarmerr.ErrExecute, p.Message)
		default:
			return false, fmt.Errorf("agent: upload: unexpected response kind %q", env.Kind)
		}
	}
}

// Run executes a remote process and drives its lifetime: forwarding stdin,
// delivering stdout/stderr as they arrive, and sending a terminate request
// if req.Terminate fires before the process exits. Returns the agent's
// reported exit_ok. Grounded on fernbedienung::Device::run /
// handle_run_request.
func (h *Handle) Run(ctx context.Context, req RunRequest) (bool, error) {
	id := uuid.New()
	sink := h.registerCorrelator(id)
	defer h.releaseCorrelator(id)

	runReq, err := wire.NewRequest(id, wire.KindProcessRun, wire.RunPayload{
		Target: req.Target, WorkingDir: req.WorkingDir, Args: req.Args,
	})
	if err != nil {
		return false, fmt.Errorf("agent: run: %w", err)
	}
	if err := h.send(runReq); err != nil {
		return false, err
	}

	resp := recvLoop(sink, h.closed)
	terminate := req.Terminate
	stdin := req.Stdin

	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()

		case <-terminate:
			terminate = nil
			termReq, _ := wire.NewRequest(id, wire.KindProcessTerminate, nil)
			if err := h.send(termReq); err != nil {
				return false, err
			}

		case data, ok := <-stdin:
			if !ok {
				stdin = nil
				continue
			}
			stdinReq, _ := wire.NewRequest(id, wire.KindProcessStdin, wire.StdinPayload{Bytes: data})
			if err := h.send(stdinReq); err != nil {
				return false, err
			}

		case env, ok := <-resp:
			if !ok {
				return false, swarmerr.ErrResponse
			}
			switch env.Kind {
			case wire.KindOk:
				// acknowledgement only; the terminal response is Terminated.
			case wire.KindError:
				var p wire.ErrorPayload
				env.Decode(&p)
				logging.Debugf("agent: run %s: %s", id, p.Message)
			case wire.KindProcessStdout:
				var p wire.OutputPayload
				env.Decode(&p)
				deliver(req.Stdout, p.Bytes, h.closed)
			case wire.KindProcessStderr:
				var p wire.OutputPayload
				env.Decode(&p)
				deliver(req.Stderr, p.Bytes, h.closed)
			case wire.KindProcessTerminated:
				var p wire.TerminatedPayload
				env.Decode(&p)
				return p.ExitOK, nil
			default:
				logging.Debugf("agent: run %s: unexpected response kind %q", id, env.Kind)
			}
		}
	}
}

// Stream starts a remote camera/sensor stream and forwards each frame to
// req.Frames until the context is cancelled, the agent reports an error,
// or the connection is lost. Grounded on fernbedienung::Device::stream /
// handle_stream_request.
//
// Firing req.Stop does not return immediately: it sends the Stop request
// and then, exactly like Run keeps consuming after sending Terminate,
// keeps draining resp so any Frame the peer emits in the race between
// receiving Stop and actually stopping is still delivered rather than
// silently dropped (spec.md §4.1: "push a Stop request and exit once no
// more frames arrive"). The only exits left after that are ctx
// cancellation or the response channel closing — per the design note on
// this spec's ambiguous stream-termination behavior, this driver does not
// distinguish "peer stopped cleanly" from "peer closed," so both surface
// as swarmerr.ErrResponse.
func (h *Handle) Stream(ctx context.Context, req StreamRequest) error {
	id := uuid.New()
	sink := h.registerCorrelator(id)
	defer h.releaseCorrelator(id)

	startReq, err := wire.NewRequest(id, wire.KindStreamStart, wire.StreamStartPayload{Kind: req.Kind})
	if err != nil {
		return fmt.Errorf("agent: stream: %w", err)
	}
	if err := h.send(startReq); err != nil {
		return err
	}

	resp := recvLoop(sink, h.closed)
	stop := req.Stop

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-stop:
			stop = nil
			stopReq, _ := wire.NewRequest(id, wire.KindStreamStop, nil)
			if err := h.send(stopReq); err != nil {
				return err
			}

		case env, ok := <-resp:
			if !ok {
				return swarmerr.ErrResponse
			}
			switch env.Kind {
			case wire.KindOk:
			case wire.KindError:
				var p wire.ErrorPayload
				env.Decode(&p)
				return fmt.Errorf("agent: stream: %w: %s", swarmerr.ErrExecute, p.Message)
			case wire.KindStreamFrame:
				var p wire.FramePayload
				env.Decode(&p)
				deliver(req.Frames, p.Bytes, h.closed)
			default:
				logging.Debugf("agent: stream %s: unexpected response kind %q", id, env.Kind)
			}
		}
	}
}

// deliver sends value on ch unless the handle is closing first. A nil ch is
// a silent no-op, letting callers omit stdout/stderr/frame sinks.
func deliver(ch chan<- []byte, value []byte, closed <-chan struct{}) {
	if ch == nil {
		return
	}
	select {
	case ch <- value:
	case <-closed:
	}
}
