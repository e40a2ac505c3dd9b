// Package cotb is the cooperative coroutine core of the test runner: it
// multiplexes user coroutines onto the simulator's single scheduling
// goroutine and sequences signal writes against the simulator's callback
// phases.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - task.go: coroutine frames (fibers with strict handoff) and the Coro
//     capability handed to user bodies
//   - scheduler.go: ready queue, pending-write queue, phase state machine
//     and the callback trampolines
//   - runner.go: sequential test execution with per-test isolation
//
// # Model
//
// A coroutine suspends only at Await (timers, signal edges, the read-only
// rendezvous) and at joins. Signal stores never apply eagerly: Handle.Set
// enqueues a write that the scheduler flushes at the entry of the next
// read-write phase, so every write issued during one resume batch becomes
// visible to the simulator together. Requesting a read-write callback while
// the read-only phase runs defers the request to the next time step.
//
// Completion of a frame with a join waiter inside a read-write drain, with
// writes still pending, bounces the waiter through a zero-tick timer: the
// simulator settles the writes before the waiter's next read.
package cotb
