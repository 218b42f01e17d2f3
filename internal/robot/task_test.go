package robot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"swarmctl/internal/eventbus"
)

// fakeController is a scriptable robot.Controller used to drive Task
// through its state machine without a real agent connection.
type fakeController struct {
	mu        sync.Mutex
	uploadOK  bool
	uploadErr error

	startExitOK bool
	startErr    error
	startDelay  time.Duration
	stdoutChunk []byte
}

func (f *fakeController) Kind() Kind { return KindGround }

func (f *fakeController) Identify(ctx context.Context) (string, error) { return "fake-robot", nil }
func (f *fakeController) Reboot(ctx context.Context) (bool, error)     { return true, nil }
func (f *fakeController) Halt(ctx context.Context) (bool, error)       { return true, nil }

func (f *fakeController) Upload(ctx context.Context, bundle UploadBundle) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.uploadOK, f.uploadErr
}

func (f *fakeController) Clear(ctx context.Context, dir string) (bool, error) { return true, nil }

func (f *fakeController) Start(ctx context.Context, spec RunSpec, terminate <-chan struct{}, stdout, stderr chan<- []byte) (bool, error) {
	if f.stdoutChunk != nil {
		stdout <- f.stdoutChunk
	}
	select {
	case <-terminate:
		return true, nil
	case <-time.After(f.startDelay):
		return f.startExitOK, f.startErr
	}
}

func (f *fakeController) Close() error { return nil }

func mustReply(t *testing.T, reply chan error, wait time.Duration) error {
	t.Helper()
	select {
	case err := <-reply:
		return err
	case <-time.After(wait):
		t.Fatal("timed out waiting for command reply")
		return nil
	}
}

func TestUploadTransitionsStandbyToReady(t *testing.T) {
	ctrl := &fakeController{uploadOK: true}
	task := New("r1", "10.0.0.1", ctrl, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	reply := make(chan error, 1)
	task.Enqueue(Command{Action: ActionUpload, Reply: reply})
	if err := mustReply(t, reply, time.Second); err != nil {
		t.Fatalf("upload: %v", err)
	}

	deadline := time.After(time.Second)
	for task.State() != StateReady {
		select {
		case <-deadline:
			t.Fatalf("expected state ready, got %s", task.State())
		default:
		}
	}
}

func TestStartInadmissibleFromStandby(t *testing.T) {
	ctrl := &fakeController{}
	task := New("r1", "10.0.0.1", ctrl, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	reply := make(chan error, 1)
	task.Enqueue(Command{Action: ActionStart, Reply: reply})
	err := mustReply(t, reply, time.Second)
	if err == nil {
		t.Fatal("expected Start to be rejected from Standby")
	}
	if task.State() != StateStandby {
		t.Errorf("expected state unchanged, got %s", task.State())
	}
}

func TestFullLifecycleRunThenTerminate(t *testing.T) {
	ctrl := &fakeController{uploadOK: true, startDelay: 5 * time.Second}
	task := New("r1", "10.0.0.1", ctrl, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	uploadReply := make(chan error, 1)
	task.Enqueue(Command{Action: ActionUpload, Reply: uploadReply})
	if err := mustReply(t, uploadReply, time.Second); err != nil {
		t.Fatalf("upload: %v", err)
	}

	startReply := make(chan error, 1)
	task.Enqueue(Command{Action: ActionStart, Reply: startReply})
	if err := mustReply(t, startReply, time.Second); err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.After(time.Second)
	for task.State() != StateRunning {
		select {
		case <-deadline:
			t.Fatalf("expected state running, got %s", task.State())
		default:
		}
	}

	terminateReply := make(chan error, 1)
	task.Enqueue(Command{Action: ActionTerminate, Reply: terminateReply})
	if err := mustReply(t, terminateReply, time.Second); err != nil {
		t.Fatalf("terminate: %v", err)
	}

	deadline = time.After(2 * time.Second)
	for task.State() != StateStandby {
		select {
		case <-deadline:
			t.Fatalf("expected state to return to standby after terminate, got %s", task.State())
		default:
		}
	}
}

func TestControllerErrorFaultsTask(t *testing.T) {
	ctrl := &fakeController{uploadOK: true, startErr: errors.New("boom"), startDelay: 10 * time.Millisecond}
	task := New("r1", "10.0.0.1", ctrl, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Run(ctx)

	uploadReply := make(chan error, 1)
	task.Enqueue(Command{Action: ActionUpload, Reply: uploadReply})
	mustReply(t, uploadReply, time.Second)

	startReply := make(chan error, 1)
	task.Enqueue(Command{Action: ActionStart, Reply: startReply})
	mustReply(t, startReply, time.Second)

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("expected task to exit after controller error faulted it")
	}
	if task.Err() == nil {
		t.Error("expected Err() to report the fault cause")
	}
}

func TestContextCancellationFaultsTask(t *testing.T) {
	ctrl := &fakeController{}
	task := New("r1", "10.0.0.1", ctrl, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	go task.Run(ctx)

	cancel()

	select {
	case <-task.Done():
	case <-time.After(time.Second):
		t.Fatal("expected task to exit on context cancellation")
	}
}
