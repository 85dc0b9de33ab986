package job

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"
)

// WaitForFinalState blocks until the job reaches any final status. The
// terminal outcome is observed through this call's return, never through
// the callback.
//
// With WithCallback attached, the call owns exactly one watcher goroutine
// fed through a private exchange:
//
//   - change-driven (default): the callback fires once per distinct
//     snapshot, deduped by value equality of (status, queue placement);
//   - heartbeat (WithPollInterval > 0): the callback fires on every tick
//     with the freshest snapshot seen so far, changed or not.
//
// In both modes the watcher exits without invoking the callback the moment
// it observes a final-status snapshot, and the watcher is signalled, woken,
// and joined before this call returns on every exit path, timeouts and
// transport failures included.
func (h *Handle) WaitForFinalState(ctx context.Context, opts ...WaitOption) error {
	o := newWaitOptions(opts)

	if o.callback == nil {
		_, err := h.WaitForCompletion(ctx, nil, opts...)

		return err
	}

	ex := NewExchange()
	w := newWatcher(o.callback, o.interval, h.logger)
	w.start(ex)

	defer func() {
		// Exit signal first, then the wake-up close, then the join. The
		// watcher is never leaked, whatever path brought us here.
		w.stop()
		ex.Close()
		w.join()
	}()

	_, err := h.WaitForCompletion(ctx, nil, append(opts, WithExchange(ex))...)

	return err
}

// ──────────────────────────────────────────────────
// Watcher goroutine
// ──────────────────────────────────────────────────

// watcher delivers snapshots from one exchange to one callback. Every
// callback-carrying wait owns exactly one watcher, started when the wait
// begins and joined before it returns. The watcher reads snapshots only; it
// never touches the handle.
type watcher struct {
	callback  func(Snapshot)
	heartbeat time.Duration // 0 = change-driven
	logger    *slog.Logger
	stopCh    chan struct{}
	done      chan struct{}
}

func newWatcher(cb func(Snapshot), heartbeat time.Duration, logger *slog.Logger) *watcher {
	return &watcher{
		callback:  cb,
		heartbeat: heartbeat,
		logger:    logger,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// start launches the watcher goroutine consuming from ex.
func (w *watcher) start(ex *Exchange) {
	go w.run(ex)
}

// stop signals the watcher to exit. Must be called exactly once.
func (w *watcher) stop() {
	close(w.stopCh)
}

// join blocks until the watcher goroutine has exited.
func (w *watcher) join() {
	<-w.done
}

func (w *watcher) run(ex *Exchange) {
	defer close(w.done)

	if w.heartbeat > 0 {
		w.runHeartbeat(ex)

		return
	}
	w.runChangeDriven(ex)
}

// runChangeDriven blocks on the exchange and fires the callback once per
// distinct snapshot.
func (w *watcher) runChangeDriven(ex *Exchange) {
	var last Snapshot
	var delivered bool

	for {
		snap, ok := ex.Consume(w.stopCh)
		if !ok {
			return
		}
		if snap.Status.IsFinal() {
			// The foreground return carries the terminal outcome.
			return
		}
		if delivered && snap.Equal(last) {
			continue
		}
		if !w.deliver(snap) {
			return
		}
		last, delivered = snap, true
	}
}

// runHeartbeat wakes on a fixed cadence and fires the callback with the
// freshest snapshot on every tick, changed or not. Ticks before the first
// snapshot arrives deliver nothing.
func (w *watcher) runHeartbeat(ex *Exchange) {
	ticker := time.NewTicker(w.heartbeat)
	defer ticker.Stop()

	var last Snapshot
	var seen bool

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
		}

		if snap, ok := ex.TryConsume(); ok {
			last, seen = snap, true
		}
		if !seen {
			continue
		}
		if last.Status.IsFinal() {
			return
		}
		if !w.deliver(last) {
			return
		}
	}
}

// deliver invokes the callback, containing panics. A panicking callback
// ends deliveries for this watch; the foreground wait is unaffected.
func (w *watcher) deliver(snap Snapshot) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("status callback panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			ok = false
		}
	}()

	w.callback(snap)

	return true
}
