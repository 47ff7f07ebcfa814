package store

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Amayakite/AutoClicker/internal/engine"
)

// Recorder persists engine runs. It implements engine.Observer.
//
// Callbacks only enqueue; a single writer goroutine applies them in order.
// A failed write is logged and counted, and never affects the run.
// Call Close to flush pending writes before closing the Store.
type Recorder struct {
	store  *Store
	script string
	queue  *recordQueue
	log    *slog.Logger

	failures  atomic.Int64
	done      chan struct{}
	closeOnce sync.Once
}

var _ engine.Observer = (*Recorder)(nil)

// NewRecorder starts a Recorder writing runs of script to s.
func NewRecorder(s *Store, script string) *Recorder {
	r := &Recorder{
		store:  s,
		script: script,
		queue:  newRecordQueue(),
		log:    slog.With("component", "store", "script", script),
		done:   make(chan struct{}),
	}
	go r.drain()
	return r
}

// RunStarted implements engine.Observer.
func (r *Recorder) RunStarted(info engine.RunInfo) {
	r.enqueue(record{kind: recordRunStarted, info: info})
}

// TapDispatched implements engine.Observer.
func (r *Recorder) TapDispatched(ev engine.TapEvent) {
	r.enqueue(record{kind: recordTap, tap: ev})
}

// RunFinished implements engine.Observer.
func (r *Recorder) RunFinished(summary engine.RunSummary) {
	r.enqueue(record{kind: recordRunFinished, summary: summary})
}

func (r *Recorder) enqueue(rec record) {
	if !r.queue.Enqueue(rec) {
		r.failures.Add(1)
		r.log.Warn("recorder closed, dropping record", "kind", rec.kind)
	}
}

// Failures returns how many records could not be written.
func (r *Recorder) Failures() int64 {
	return r.failures.Load()
}

// Close stops accepting records and blocks until pending ones are written.
func (r *Recorder) Close() {
	r.closeOnce.Do(r.queue.Close)
	<-r.done
}

func (r *Recorder) drain() {
	defer close(r.done)
	ctx := context.Background()

	for {
		for {
			rec, ok := r.queue.TryDequeue()
			if !ok {
				break
			}
			r.write(ctx, rec)
		}
		if r.queue.isClosed() && r.queue.Len() == 0 {
			return
		}
		<-r.queue.Wait()
	}
}

func (r *Recorder) write(ctx context.Context, rec record) {
	var err error
	switch rec.kind {
	case recordRunStarted:
		err = r.store.BeginRun(ctx, r.script, rec.info)
	case recordTap:
		err = r.store.WriteTap(ctx, rec.tap)
	case recordRunFinished:
		err = r.store.FinishRun(ctx, rec.summary)
	}
	if err != nil {
		r.failures.Add(1)
		r.log.Error("run log write failed", "error", err)
	}
}
