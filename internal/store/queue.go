package store

import (
	"sync"

	"github.com/Amayakite/AutoClicker/internal/engine"
)

// recordKind distinguishes queued observer callbacks.
type recordKind int

const (
	recordRunStarted recordKind = iota + 1
	recordTap
	recordRunFinished
)

// record is one queued observer callback awaiting its write.
type record struct {
	kind    recordKind
	info    engine.RunInfo
	tap     engine.TapEvent
	summary engine.RunSummary
}

// recordQueue is a thread-safe, unbounded FIFO between the tap loop and the
// writer goroutine.
//
// The queue is unbounded so that the tap loop never blocks on disk I/O.
// The signal channel coalesces wakeups (buffered, size 1) and is closed on
// Close to wake the writer for its final drain.
type recordQueue struct {
	mu      sync.Mutex
	records []record
	closed  bool
	signal  chan struct{}
}

func newRecordQueue() *recordQueue {
	return &recordQueue{
		records: make([]record, 0, 64),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds r to the back of the queue.
// Returns false if the queue is closed.
func (q *recordQueue) Enqueue(r record) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.records = append(q.records, r)

	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front record without blocking.
func (q *recordQueue) TryDequeue() (record, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.records) == 0 {
		return record{}, false
	}

	r := q.records[0]
	// Clear the slot so the backing array does not retain the summary's error.
	q.records[0] = record{}
	if len(q.records) == 1 {
		q.records = q.records[:0]
	} else {
		q.records = q.records[1:]
	}
	return r, true
}

// Wait returns a channel that signals when records may be available.
// It is closed once the queue is closed.
func (q *recordQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *recordQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.records)
}

// Close stops accepting records and wakes the writer.
func (q *recordQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}

func (q *recordQueue) isClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
