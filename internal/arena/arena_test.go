package arena

import (
	"context"
	"errors"
	"testing"
	"time"

	"swarmctl/internal/eventbus"
	"swarmctl/internal/pool"
	"swarmctl/internal/robot"
)

type fakeController struct {
	kind       robot.Kind
	startDelay time.Duration
	startErr   error
}

func (f *fakeController) Kind() robot.Kind                             { return f.kind }
func (f *fakeController) Identify(ctx context.Context) (string, error) { return "fake", nil }
func (f *fakeController) Reboot(ctx context.Context) (bool, error)     { return true, nil }
func (f *fakeController) Halt(ctx context.Context) (bool, error)       { return true, nil }
func (f *fakeController) Upload(ctx context.Context, b robot.UploadBundle) (bool, error) {
	return true, nil
}
func (f *fakeController) Clear(ctx context.Context, dir string) (bool, error) { return true, nil }
func (f *fakeController) Start(ctx context.Context, spec robot.RunSpec, terminate <-chan struct{}, stdout, stderr chan<- []byte) (bool, error) {
	if f.startErr != nil {
		return false, f.startErr
	}
	select {
	case <-terminate:
		return true, nil
	case <-time.After(f.startDelay):
		return true, nil
	}
}
func (f *fakeController) Close() error { return nil }

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not met within timeout")
		default:
		}
	}
}

func TestAddRobotAndRecords(t *testing.T) {
	p := pool.New()
	a := New(p, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.AddRobot(ctx, "r1", "10.0.0.1", &fakeController{kind: robot.KindGround}); err != nil {
		t.Fatalf("AddRobot: %v", err)
	}

	recs, err := a.Records(ctx)
	if err != nil {
		t.Fatalf("Records: %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "r1" {
		t.Fatalf("expected one record for r1, got %+v", recs)
	}
}

func TestAddRobotDuplicateRejected(t *testing.T) {
	p := pool.New()
	a := New(p, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.AddRobot(ctx, "r1", "10.0.0.1", &fakeController{kind: robot.KindGround}); err != nil {
		t.Fatalf("AddRobot: %v", err)
	}
	if err := a.AddRobot(ctx, "r1", "10.0.0.2", &fakeController{kind: robot.KindGround}); err == nil {
		t.Fatal("expected duplicate admission to be rejected")
	}
}

func TestCommandUnknownIDReturnsNotFound(t *testing.T) {
	p := pool.New()
	a := New(p, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	err := a.Command(ctx, "ghost", robot.Command{Action: robot.ActionIdentify})
	if err == nil {
		t.Fatal("expected NotFound for an unadmitted robot id")
	}
}

func TestTaskCompletionReleasesAddressAndDropsRecord(t *testing.T) {
	p := pool.New()
	a := New(p, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.AddRobot(ctx, "r1", "10.0.0.1", &fakeController{kind: robot.KindGround, startErr: errors.New("boom")}); err != nil {
		t.Fatalf("AddRobot: %v", err)
	}
	if err := a.Command(ctx, "r1", robot.Command{Action: robot.ActionUpload}); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		recs, _ := a.Records(ctx)
		return len(recs) == 1 && recs[0].State == robot.StateReady
	})
	if err := a.Command(ctx, "r1", robot.Command{Action: robot.ActionStart}); err != nil {
		t.Fatalf("Start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		recs, _ := a.Records(ctx)
		return len(recs) == 0
	})
	if p.Len() != 1 {
		t.Errorf("expected the address to be released back to the pool, len=%d", p.Len())
	}
}

func TestExperimentStartRequiresAllReady(t *testing.T) {
	p := pool.New()
	a := New(p, eventbus.New())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.Run(ctx)

	if err := a.AddRobot(ctx, "r1", "10.0.0.1", &fakeController{kind: robot.KindGround}); err != nil {
		t.Fatalf("AddRobot: %v", err)
	}

	if err := a.Experiment(ctx, ActionStart); err == nil {
		t.Fatal("expected Start to be rejected while r1 is still Standby")
	}
}
