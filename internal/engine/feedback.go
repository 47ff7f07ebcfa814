package engine

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	// feedbackQueueSize bounds pending feedback calls. Calls beyond it are
	// dropped so a slow sink never holds up a tap.
	feedbackQueueSize = 16

	// feedbackDrainTimeout bounds how long Execute waits for queued feedback
	// once a run ends.
	feedbackDrainTimeout = 2 * time.Second
)

type feedbackCall struct {
	kind string
	fn   func(Feedback) error
}

// feedbackWorker delivers feedback calls in order on its own goroutine.
// One worker serves one run.
type feedbackWorker struct {
	sink  Feedback
	calls chan feedbackCall
	done  chan struct{}
	log   *slog.Logger
}

func startFeedbackWorker(sink Feedback, log *slog.Logger) *feedbackWorker {
	w := &feedbackWorker{
		sink:  sink,
		calls: make(chan feedbackCall, feedbackQueueSize),
		done:  make(chan struct{}),
		log:   log,
	}
	go w.loop()
	return w
}

func (w *feedbackWorker) loop() {
	defer close(w.done)
	for c := range w.calls {
		w.deliver(c)
	}
}

// deliver runs one call, logging and discarding any error or panic.
func (w *feedbackWorker) deliver(c feedbackCall) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Debug("feedback panicked", "kind", c.kind, "panic", fmt.Sprint(r))
		}
	}()
	if err := c.fn(w.sink); err != nil {
		w.log.Debug("feedback failed", "kind", c.kind, "error", err)
	}
}

// send queues a call without blocking.
func (w *feedbackWorker) send(kind string, fn func(Feedback) error) {
	select {
	case w.calls <- feedbackCall{kind: kind, fn: fn}:
	default:
		w.log.Debug("feedback dropped, sink busy", "kind", kind)
	}
}

// close stops accepting calls and waits up to timeout for queued ones.
// A sink still busy after timeout is abandoned.
func (w *feedbackWorker) close(timeout time.Duration) {
	close(w.calls)
	if timeout <= 0 {
		return
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-w.done:
	case <-timer.C:
		w.log.Warn("feedback still pending after run", "timeout", timeout)
	}
}
