package job_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantacore/quanta/job"
)

// awaitSnap blocks until the callback delivers one snapshot. It must run on
// the test goroutine.
func awaitSnap(t *testing.T, acks <-chan job.Snapshot) job.Snapshot {
	t.Helper()
	select {
	case s := <-acks:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("callback delivered no snapshot before the deadline")
	}

	return job.Snapshot{}
}

// waitUntil polls cond until it holds or the deadline passes.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached before the deadline")
}

func drained(acks <-chan job.Snapshot) int {
	n := 0
	for {
		select {
		case <-acks:
			n++
		default:
			return n
		}
	}
}

func TestHandle_WaitForFinalState_NoCallback(t *testing.T) {
	ft := &fakeTransport{}
	h := newTestHandle(ft)

	if err := h.WaitForFinalState(context.Background()); err != nil {
		t.Fatalf("WaitForFinalState() error: %v", err)
	}

	st, err := h.Status(context.Background())
	if err != nil {
		t.Fatalf("Status() error: %v", err)
	}
	if st != job.StatusCompleted {
		t.Errorf("Status() = %v, want %v", st, job.StatusCompleted)
	}
}

func TestHandle_WaitForFinalState_AlreadyFinalSkipsCallback(t *testing.T) {
	ft := &fakeTransport{}
	h := newTestHandle(ft, job.WithStatus(job.StatusCompleted))

	var calls atomic.Int64
	err := h.WaitForFinalState(context.Background(), job.WithCallback(func(job.Snapshot) {
		calls.Add(1)
	}))
	if err != nil {
		t.Fatalf("WaitForFinalState() error: %v", err)
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times for an already-final job, want 0", got)
	}
}

func TestHandle_WaitForFinalState_DedupsUnchangedSnapshots(t *testing.T) {
	q5 := job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}}
	q2 := job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 2}}
	running := job.Snapshot{Status: job.StatusRunning}

	acks := make(chan job.Snapshot, 16)

	ft := &fakeTransport{
		// Runs on the test goroutine: WaitForFinalState calls into the
		// transport synchronously while the watcher consumes alongside.
		pollFn: func(_ context.Context, ex *job.Exchange) (job.StatusUpdate, error) {
			ex.Publish(q5)
			if got := awaitSnap(t, acks); !got.Equal(q5) {
				t.Errorf("delivery 1 = %+v, want %+v", got, q5)
			}

			// An unchanged observation produces no delivery; the next
			// distinct one does.
			ex.Publish(q5)
			ex.Publish(q2)
			if got := awaitSnap(t, acks); !got.Equal(q2) {
				t.Errorf("delivery 2 = %+v, want %+v", got, q2)
			}

			ex.Publish(running)
			if got := awaitSnap(t, acks); !got.Equal(running) {
				t.Errorf("delivery 3 = %+v, want %+v", got, running)
			}

			ex.Publish(job.Snapshot{Status: job.StatusCompleted})

			return job.StatusUpdate{Status: "completed"}, nil
		},
	}
	h := newTestHandle(ft)

	err := h.WaitForFinalState(context.Background(), job.WithCallback(func(s job.Snapshot) {
		acks <- s
	}))
	if err != nil {
		t.Fatalf("WaitForFinalState() error: %v", err)
	}

	// Three distinct non-final snapshots, three deliveries, nothing after:
	// the duplicate was deduped and the final snapshot never reached the
	// callback.
	if extra := drained(acks); extra != 0 {
		t.Errorf("%d deliveries after the wait returned, want 0", extra)
	}
}

func TestHandle_WaitForFinalState_HeartbeatDeliversEachTick(t *testing.T) {
	const beat = 30 * time.Millisecond

	q5 := job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}}
	acks := make(chan job.Snapshot, 32)

	ft := &fakeTransport{
		pollFn: func(_ context.Context, ex *job.Exchange) (job.StatusUpdate, error) {
			ex.Publish(q5)

			// Five ticks pass with no status change; each one delivers
			// the same snapshot again.
			for i := range 5 {
				if got := awaitSnap(t, acks); !got.Equal(q5) {
					t.Errorf("heartbeat %d = %+v, want %+v", i+1, got, q5)
				}
			}

			ex.Publish(job.Snapshot{Status: job.StatusCompleted})

			return job.StatusUpdate{Status: "completed"}, nil
		},
	}
	h := newTestHandle(ft)

	err := h.WaitForFinalState(context.Background(),
		job.WithCallback(func(s job.Snapshot) { acks <- s }),
		job.WithPollInterval(beat))
	if err != nil {
		t.Fatalf("WaitForFinalState() error: %v", err)
	}

	if extra := drained(acks); extra != 0 {
		t.Errorf("%d deliveries after the wait returned, want 0", extra)
	}
}

func TestHandle_WaitForFinalState_HeartbeatNeverDeliversFinal(t *testing.T) {
	const beat = 20 * time.Millisecond

	var calls atomic.Int64

	ft := &fakeTransport{
		pollFn: func(_ context.Context, ex *job.Exchange) (job.StatusUpdate, error) {
			// The only snapshot the watcher ever sees is final. Several
			// ticks elapse; none may reach the callback.
			ex.Publish(job.Snapshot{Status: job.StatusCompleted})
			time.Sleep(4 * beat)

			return job.StatusUpdate{Status: "completed"}, nil
		},
	}
	h := newTestHandle(ft)

	err := h.WaitForFinalState(context.Background(),
		job.WithCallback(func(job.Snapshot) { calls.Add(1) }),
		job.WithPollInterval(beat))
	if err != nil {
		t.Fatalf("WaitForFinalState() error: %v", err)
	}

	if got := calls.Load(); got != 0 {
		t.Errorf("callback ran %d times on final-only snapshots, want 0", got)
	}
}

func TestHandle_WaitForFinalState_JoinsWatcherOnTimeout(t *testing.T) {
	q5 := job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}}

	ft := &fakeTransport{
		pollFn: func(ctx context.Context, ex *job.Exchange) (job.StatusUpdate, error) {
			ex.Publish(q5)
			<-ctx.Done()

			return job.StatusUpdate{}, ctx.Err()
		},
	}
	h := newTestHandle(ft)

	var calls atomic.Int64
	started := make(chan struct{})
	finished := make(chan struct{})

	start := time.Now()
	err := h.WaitForFinalState(context.Background(),
		job.WithCallback(func(job.Snapshot) {
			calls.Add(1)
			close(started)
			// Outlive the timeout: the wait must not return while the
			// callback is still on its goroutine.
			time.Sleep(80 * time.Millisecond)
			close(finished)
		}),
		job.WithTimeout(30*time.Millisecond))

	var terr *job.TimeoutError
	if !errors.As(err, &terr) {
		t.Fatalf("error = %v (%T), want *TimeoutError", err, err)
	}

	select {
	case <-started:
	default:
		t.Fatal("callback never ran")
	}
	select {
	case <-finished:
	default:
		t.Error("wait returned while the callback was still running")
	}
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("wait returned after %v, before the in-flight delivery finished", elapsed)
	}

	// Quiet after return: the watcher is gone, not orphaned.
	before := calls.Load()
	time.Sleep(50 * time.Millisecond)
	if after := calls.Load(); after != before {
		t.Errorf("callback ran %d more times after the wait returned", after-before)
	}
}

func TestHandle_WaitForFinalState_CallbackPanicContained(t *testing.T) {
	q5 := job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 5}}
	q2 := job.Snapshot{Status: job.StatusQueued, Queue: &job.QueueInfo{Position: 2}}

	var calls atomic.Int64

	ft := &fakeTransport{
		pollFn: func(_ context.Context, ex *job.Exchange) (job.StatusUpdate, error) {
			ex.Publish(q5)
			waitUntil(t, func() bool { return calls.Load() == 1 })

			// Deliveries are dead after the panic; this snapshot must
			// not resurrect them.
			ex.Publish(q2)
			time.Sleep(30 * time.Millisecond)

			return job.StatusUpdate{Status: "completed"}, nil
		},
	}
	h := newTestHandle(ft)

	err := h.WaitForFinalState(context.Background(), job.WithCallback(func(job.Snapshot) {
		calls.Add(1)
		panic("callback exploded")
	}))
	if err != nil {
		t.Fatalf("WaitForFinalState() error: %v", err)
	}

	if got := calls.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1 (panic ends deliveries)", got)
	}
}
