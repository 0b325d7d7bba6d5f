// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// Push and Pop return one of three sentinel errors. ErrFull and ErrEmpty
// are transient control flow signals; ErrClosed is terminal and monotonic.
//
// ErrFull and ErrEmpty wrap [iox.ErrWouldBlock], so callers using
// [iox.IsWouldBlock] for ecosystem-wide backpressure handling keep working:
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.Push(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if cq.IsClosed(err) {
//	        return err // Terminal - stop producing
//	    }
//	    backoff.Wait() // Full - adaptive backpressure
//	}
var (
	// ErrFull indicates a push found no free slot. Bounded and single-slot
	// queues only; the unbounded queue never returns it. The rejected item
	// is untouched and remains with the caller.
	ErrFull = fmt.Errorf("cq: queue full: %w", iox.ErrWouldBlock)

	// ErrEmpty indicates a pop found no item. Not a failure of the queue,
	// just "no data yet"; retry or park.
	ErrEmpty = fmt.Errorf("cq: queue empty: %w", iox.ErrWouldBlock)

	// ErrClosed is terminal. From Push it means the queue was shut down and
	// the item was not consumed. From Pop it means shut down AND drained:
	// residual items are still returned normally before ErrClosed appears.
	ErrClosed = errors.New("cq: queue closed")
)

// IsWouldBlock reports whether err is a transient full/empty condition.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsClosed reports whether err indicates queue shutdown.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil and the transient full/empty signals.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
