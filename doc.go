// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cq provides a concurrent multi-producer multi-consumer queue
// with a cooperative close protocol.
//
// Three capacity regimes share one interface:
//
//   - Bounded: fixed-capacity slot ring
//   - Unbounded: growable linked chain of blocks
//   - Single: single-slot rendezvous cell
//
// Queues can be closed at any point. When closed, no more items can be
// pushed, but the remaining items can still be popped. These features make
// it easy to build channels and messaging layers on top of this package.
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := cq.NewBounded[Event](1024)
//	q := cq.NewUnbounded[*Request]()
//	q := cq.NewSingle[Token]()
//
// The NewQueue facade selects the engine from the capacity policy:
//
//	q := cq.NewQueue[Event](1024)         // → Bounded
//	q := cq.NewQueue[Event](1)            // → Single
//	q := cq.NewQueue[Event](cq.Unlimited) // → Unbounded
//
// # Basic Usage
//
// All queues share the same interface for pushing and popping:
//
//	q := cq.NewQueue[int](1024)
//
//	// Push (non-blocking)
//	value := 42
//	err := q.Push(&value)
//	if cq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	// Pop (non-blocking)
//	elem, err := q.Pop()
//	if cq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Close Protocol
//
// Close is one-way and idempotent. Any participant may call it; the first
// call returns true, every later call false. After close:
//
//   - Push returns ErrClosed, even when free slots remain. The rejected
//     item stays with the caller.
//   - Pop keeps draining items pushed before the close, and reports
//     ErrClosed only once the queue is also empty.
//
//	q := cq.NewUnbounded[int]()
//	x, y := 1, 2
//	q.Push(&x)
//	q.Push(&y)
//
//	q.Close()          // true
//	q.Close()          // false - already closed
//
//	z := 3
//	q.Push(&z)         // ErrClosed; z not consumed
//
//	q.Pop()            // 1, nil - residual items drain first
//	q.Pop()            // 2, nil
//	q.Pop()            // ErrClosed - shut down and drained
//
// # Error Handling
//
// The taxonomy is three-valued and exhaustive: [ErrFull] and [ErrEmpty]
// are transient (retry or park), [ErrClosed] is terminal and monotonic.
// ErrFull and ErrEmpty wrap [code.hybscloud.com/iox]'s ErrWouldBlock for
// ecosystem consistency.
//
//	// Retry loop with backoff
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Push(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if cq.IsClosed(err) {
//	        return err // Terminal
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification:
//
//	cq.IsWouldBlock(err) // true if queue full/empty
//	cq.IsClosed(err)     // true if queue shut down
//	cq.IsSemantic(err)   // true if control flow signal
//
// # Capacity and Length
//
// Capacity is exact, not rounded: a bounded queue of capacity n accepts
// exactly n pushes before reporting ErrFull. Capacity zero is rejected at
// construction.
//
// Len, IsEmpty, IsFull and IsClosed are advisory snapshots; under
// concurrency the value may be stale the instant after it returns. Length
// is derived from cursor distance, never from a hot-path shared counter,
// and is exact whenever no operation is in flight.
//
// # Concurrency Model
//
// The package creates no goroutines and takes no locks. Any number of
// goroutines may push and pop concurrently on any engine. Every operation
// is lock-free and returns immediately with a definite outcome; internal
// compare-and-swap retries are bounded by actual contention, not by data.
// Callers wanting blocking semantics must layer their own wait/notify
// mechanism on top, treating ErrFull/ErrEmpty as "park and retry" and
// ErrClosed as terminal.
//
// Ordering: items pushed by one goroutine are popped in their push order
// relative to each other. Items from different goroutines racing for slots
// may interleave either way; only cursor claiming is serialized, not
// wall-clock fairness.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm verification.
// The engines protect non-atomic payload fields through acquire/release
// orderings on separate stamp/flag words, a happens-before edge the
// detector cannot observe, so it may report false positives on correct
// code. Stress tests incompatible with race detection are gated on
// RaceEnabled.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause
// instructions.
package cq
