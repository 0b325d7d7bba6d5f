// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Cell state bits.
const (
	cellPushed uint64 = 1 << 0 // The cell holds an item
	cellClosed uint64 = 1 << 1 // The queue has been closed
	cellLocked uint64 = 1 << 2 // A push or pop is mid-transfer
)

// Single is a single-slot rendezvous queue, the capacity-1 specialization
// selected by NewQueue. One cell, one atomic state word; no stamp or lap
// machinery is needed because there is only one slot and one lap.
//
// The locked bit marks an in-flight transfer: the side that wins the state
// CAS owns the cell until it clears the bit, and the opposite side spins
// through it rather than observing a half-written cell.
type Single[T any] struct {
	_     pad
	state atomix.Uint64
	_     padShort
	data  T
}

// NewSingle creates a single-slot queue.
func NewSingle[T any]() *Single[T] {
	return &Single[T]{}
}

// Push adds an element to the queue.
// Returns ErrFull if the cell is occupied, ErrClosed if the queue was
// closed.
func (q *Single[T]) Push(elem *T) error {
	sw := spin.Wait{}
	for {
		state := q.state.LoadAcquire()
		if state&cellClosed != 0 {
			return ErrClosed
		}
		if state&cellPushed != 0 {
			return ErrFull
		}
		if state&cellLocked != 0 {
			// A pop is draining the cell; it is about to become empty.
			sw.Once()
			continue
		}
		if q.state.CompareAndSwapAcqRel(state, state|cellPushed|cellLocked) {
			q.data = *elem
			q.unlock()
			return nil
		}
		sw.Once()
	}
}

// Pop removes and returns the element from the queue.
// Returns (zero-value, ErrEmpty) if the cell is empty, or
// (zero-value, ErrClosed) once the queue is closed and drained.
func (q *Single[T]) Pop() (T, error) {
	sw := spin.Wait{}
	for {
		state := q.state.LoadAcquire()
		if state&cellPushed == 0 {
			var zero T
			if state&cellClosed != 0 {
				return zero, ErrClosed
			}
			return zero, ErrEmpty
		}
		if state&cellLocked != 0 {
			// A push claimed the cell but its write is in flight.
			sw.Once()
			continue
		}
		if q.state.CompareAndSwapAcqRel(state, (state|cellLocked)&^cellPushed) {
			elem := q.data
			var zero T
			q.data = zero
			q.unlock()
			return elem, nil
		}
		sw.Once()
	}
}

// unlock clears the locked bit. CAS rather than a plain store because a
// concurrent Close may flip the closed bit at any moment.
func (q *Single[T]) unlock() {
	for {
		state := q.state.LoadAcquire()
		if q.state.CompareAndSwapAcqRel(state, state&^cellLocked) {
			return
		}
	}
}

// Close shuts the queue down. Idempotent.
// Returns true if this call closed the queue.
func (q *Single[T]) Close() bool {
	for {
		state := q.state.LoadAcquire()
		if state&cellClosed != 0 {
			return false
		}
		if q.state.CompareAndSwapAcqRel(state, state|cellClosed) {
			return true
		}
	}
}

// IsClosed reports whether the queue has been closed.
func (q *Single[T]) IsClosed() bool {
	return q.state.LoadAcquire()&cellClosed != 0
}

// Len returns 1 if the cell holds an item, 0 otherwise.
func (q *Single[T]) Len() int {
	if q.state.LoadAcquire()&cellPushed != 0 {
		return 1
	}
	return 0
}

// Cap returns 1.
func (q *Single[T]) Cap() int {
	return 1
}

// IsEmpty reports whether the cell is empty.
func (q *Single[T]) IsEmpty() bool {
	return q.state.LoadAcquire()&cellPushed == 0
}

// IsFull reports whether the cell holds an item.
func (q *Single[T]) IsFull() bool {
	return q.state.LoadAcquire()&cellPushed != 0
}

// String implements fmt.Stringer.
func (q *Single[T]) String() string {
	return fmt.Sprintf("cq.Single{len: %d, cap: 1, closed: %t}",
		q.Len(), q.IsClosed())
}
