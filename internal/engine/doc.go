// Package engine implements the tap execution engine.
//
// The engine turns an ordered list of click points plus a run configuration
// into a sequence of dispatched taps: ordered, cancellable, loopable, with
// per-tap jitter and progress reporting.
//
// ARCHITECTURE:
//
// Single-Flight Runs:
// An Engine runs at most one sequence at a time. Execute claims the running
// flag after its preconditions pass; a second caller gets ErrCodeAlreadyRunning.
// The flag is released by a deferred reset on every exit path (completion,
// stop, context cancellation, dispatcher failure).
//
// Run Pipeline:
//  1. Preconditions: not running, dispatcher service enabled, at least one
//     enabled point, valid config
//  2. Wait the start delay
//  3. For each enabled point in ascending Order:
//     checkpoint → progress → position (raw or jittered) → dispatch →
//     observers → queue feedback → wait the point delay
//  4. After a pass, loop while not stopping and the loop config allows it
//
// Suspension points are exactly the start delay and each post-tap delay.
//
// Cancellation:
// Stop is cooperative. It sets a flag that is polled once per point, at the
// top of the point's processing. A tap already dispatched completes and its
// delay is waited in full. Context cancellation is the hard abort: it
// interrupts a pending delay and Execute returns ctx.Err().
//
// Collaborators:
// Dispatcher synthesizes taps and is the only mandatory collaborator.
// Feedback (haptic / visual debug) is fire-and-forget: calls are queued to a
// per-run worker goroutine, dropped when the queue is full, and their errors
// and panics are logged and swallowed. Execute waits briefly for queued
// feedback before returning, and not at all after cancellation. Observers see run start, each dispatched tap and the
// run summary, synchronously in the pipeline.
//
// Tap events are stamped with a monotonic logical sequence from Sequence.
// Wall-clock times are informational only.
package engine
