package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/me/opgate/internal/config"
	"github.com/me/opgate/pkg/model"
)

func TestAwaitConnection_ReturnsOnReconnect(t *testing.T) {
	f := testSetup(t, nil)
	f.gate.connected.Store(false)

	op := f.sched.Create(SubmitRequest{Kind: "prune", Channel: "#ops", Submitter: "alice"})

	result := make(chan bool, 1)
	go func() { result <- op.AwaitConnection(context.Background()) }()

	// Let it observe the disconnected gate over several polls first.
	time.Sleep(10 * time.Millisecond)
	select {
	case <-result:
		t.Fatal("AwaitConnection returned while still disconnected")
	default:
	}

	f.gate.connected.Store(true)
	select {
	case canceled := <-result:
		if canceled {
			t.Error("reconnection alone must not report cancellation")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitConnection did not return after reconnect")
	}
}

func TestAwaitConnection_ReportsCancelWhileWaiting(t *testing.T) {
	f := testSetup(t, nil)
	f.gate.connected.Store(false)

	op := f.sched.Create(SubmitRequest{Kind: "prune", Channel: "#ops", Submitter: "alice"})

	result := make(chan bool, 1)
	go func() { result <- op.AwaitConnection(context.Background()) }()

	time.Sleep(5 * time.Millisecond)
	op.Cancel()

	select {
	case canceled := <-result:
		if !canceled {
			t.Error("cancel during a connectivity wait must be reported")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("AwaitConnection did not return after cancel")
	}
}

func TestRunLoop_MissingFuncs(t *testing.T) {
	f := testSetup(t, nil)
	op := f.sched.Create(SubmitRequest{Kind: "prune", Channel: "#ops", Submitter: "alice"})

	if _, err := op.RunLoop(context.Background(), nil, func() bool { return true }); !errors.Is(err, ErrMissingLoopFunc) {
		t.Errorf("nil condition: err = %v, want ErrMissingLoopFunc", err)
	}
	if _, err := op.RunLoop(context.Background(), func() bool { return true }, nil); !errors.Is(err, ErrMissingLoopFunc) {
		t.Errorf("nil body: err = %v, want ErrMissingLoopFunc", err)
	}
}

func TestRunLoop_BodyCompletesImmediately(t *testing.T) {
	f := testSetup(t, nil)
	op := f.sched.Create(SubmitRequest{Kind: "prune", Channel: "#ops", Submitter: "alice"})

	iterations := 0
	canceled, err := op.RunLoop(context.Background(),
		func() bool { return true },
		func() bool { iterations++; return true })

	if err != nil {
		t.Fatalf("RunLoop: %v", err)
	}
	if canceled {
		t.Error("normal completion must not report cancellation")
	}
	if iterations != 1 {
		t.Errorf("iterations = %d, want exactly 1", iterations)
	}
}

func TestRunLoop_StopsWhenConditionFalse(t *testing.T) {
	f := testSetup(t, nil)
	op := f.sched.Create(SubmitRequest{Kind: "prune", Channel: "#ops", Submitter: "alice"})

	canceled, err := op.RunLoop(context.Background(),
		func() bool { return false },
		func() bool { t.Error("body must not run when the condition is already false"); return false })

	if err != nil || canceled {
		t.Errorf("RunLoop = (%v, %v), want (false, nil)", canceled, err)
	}
}

func TestRunLoop_YieldCadence(t *testing.T) {
	tests := []struct {
		name       string
		kind       string
		iterations int
		wantYields int64
	}{
		{"normal kind yields every 10", "prune", 30, 3},
		{"large kind yields every 50", "index", 100, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := testSetup(t, func(c *config.Config) { c.LargeKinds = []string{"index"} })
			op := f.sched.Create(SubmitRequest{Kind: tt.kind, Channel: "#ops", Submitter: "alice"})

			i := 0
			canceled, err := op.RunLoop(context.Background(),
				func() bool { return i < tt.iterations },
				func() bool { i++; return false })

			if err != nil || canceled {
				t.Fatalf("RunLoop = (%v, %v), want (false, nil)", canceled, err)
			}
			if got := f.yield.count.Load(); got != tt.wantYields {
				t.Errorf("yields = %d over %d iterations, want %d", got, tt.iterations, tt.wantYields)
			}
		})
	}
}

func TestRunLoop_CancelNotifiesOnce(t *testing.T) {
	f := testSetup(t, nil)
	op := f.sched.Create(SubmitRequest{Kind: "prune", Channel: "#ops", Submitter: "alice"})

	i := 0
	canceled, err := op.RunLoop(context.Background(),
		func() bool { return true },
		func() bool {
			i++
			if i == 5 {
				op.Cancel()
			}
			return false
		})

	if err != nil {
		t.Fatalf("RunLoop: %v", err)
	}
	if !canceled {
		t.Fatal("RunLoop must report cancellation")
	}

	msgs := f.notifier.messages()
	if len(msgs) != 1 {
		t.Fatalf("cancel notice sent %d times, want 1: %v", len(msgs), msgs)
	}
	if !strings.Contains(msgs[0], "alice") || !strings.Contains(msgs[0], op.ID()) {
		t.Errorf("notice = %q, should mention the submitter and operation", msgs[0])
	}

	// A second loop on the already-canceled operation stops immediately
	// and stays silent.
	canceled, err = op.RunLoop(context.Background(),
		func() bool { return true },
		func() bool { return false })
	if err != nil || !canceled {
		t.Fatalf("second RunLoop = (%v, %v), want (true, nil)", canceled, err)
	}
	if got := len(f.notifier.messages()); got != 1 {
		t.Errorf("cancel notice repeated: %d messages", got)
	}
}

func TestRunLoop_DisconnectThenCancel(t *testing.T) {
	f := testSetup(t, nil)
	op := f.sched.Create(SubmitRequest{Kind: "prune", Channel: "#ops", Submitter: "alice"})
	if !op.Await(context.Background()) {
		t.Fatal("Await should admit")
	}

	result := make(chan bool, 1)
	go func() {
		canceled, _ := op.RunLoop(context.Background(),
			func() bool { return true },
			func() bool {
				// Simulate the transport dropping mid-run.
				f.gate.connected.Store(false)
				return false
			})
		result <- canceled
	}()

	time.Sleep(5 * time.Millisecond)
	op.Cancel()

	select {
	case canceled := <-result:
		if !canceled {
			t.Error("loop must observe the cancel raised during the connectivity wait")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunLoop did not return")
	}
	if got := op.State(); got != model.OpStateCanceled {
		t.Errorf("state = %s, want CANCELED", got)
	}
}
