// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"fmt"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Bounded is a fixed-capacity multi-producer multi-consumer queue.
//
// Each slot carries an atomic stamp encoding its ring index plus a lap
// counter that increments on every wraparound. The stamp discriminates
// "free for lap K" from "holds lap K's item", so a stale cursor can never
// read data written a later lap (ABA safety). Producers and consumers
// claim slots by CAS on the tail/head cursor; the winner owns the slot
// exclusively until it publishes the stamp transition.
//
// Capacity is exact: a queue created with capacity n accepts exactly n
// items before reporting ErrFull. Cursors encode (lap | index) with the
// close mark carried in the tail cursor, so no push can win its CAS after
// Close has been observed in the tail word.
//
// Memory: n slots (16+ bytes per slot)
type Bounded[T any] struct {
	_        pad
	tail     atomix.Uint64 // Producer cursor: lap | index, plus close mark
	_        pad
	head     atomix.Uint64 // Consumer cursor: lap | index
	_        pad
	buffer   []boundedSlot[T]
	markBit  uint64 // Close mark; also the lowest lap bit boundary
	oneLap   uint64 // Cursor distance of one full lap
	capacity uint64
}

type boundedSlot[T any] struct {
	// stamp lifecycle for lap K at index i:
	//   K|i   → free, awaiting lap K's push
	//   K|i+1 → written, awaiting lap K's pop
	//   next lap's K|i → free again
	stamp atomix.Uint64
	data  T
	_     padShort // Pad to cache line
}

// NewBounded creates a bounded queue with the given exact capacity.
// Panics if capacity < 1. For capacity 1 the single-slot Single engine is
// the cheaper choice; NewQueue selects it automatically.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		panic("cq: capacity must be >= 1")
	}

	// One bit above the largest index marks the closed queue; the lap
	// counter lives in the bits above that.
	markBit := uint64(roundToPow2(capacity + 1))
	q := &Bounded[T]{
		buffer:   make([]boundedSlot[T], capacity),
		markBit:  markBit,
		oneLap:   markBit * 2,
		capacity: uint64(capacity),
	}

	for i := range q.buffer {
		q.buffer[i].stamp.StoreRelaxed(uint64(i))
	}

	return q
}

// Push adds an element to the queue.
// Returns ErrFull if no slot is free, ErrClosed if the queue was closed.
// A closed queue rejects pushes even when free slots remain.
func (q *Bounded[T]) Push(elem *T) error {
	sw := spin.Wait{}
	tail := q.tail.LoadAcquire()
	for {
		if tail&q.markBit != 0 {
			return ErrClosed
		}

		index := tail & (q.markBit - 1)
		lap := tail &^ (q.oneLap - 1)
		slot := &q.buffer[index]
		stamp := slot.stamp.LoadAcquire()

		if stamp == tail {
			// Slot is free for this lap; try to claim it.
			newTail := tail + 1
			if index+1 == q.capacity {
				newTail = lap + q.oneLap
			}
			if q.tail.CompareAndSwapAcqRel(tail, newTail) {
				slot.data = *elem
				slot.stamp.StoreRelease(tail + 1)
				return nil
			}
		} else if stamp+q.oneLap == tail+1 {
			// Slot still holds the previous lap's item. If the head has
			// not moved either, the ring is genuinely full; otherwise a
			// pop is in flight and the claim is worth retrying.
			head := q.head.LoadAcquire()
			if head+q.oneLap == tail {
				return ErrFull
			}
		}

		sw.Once()
		tail = q.tail.LoadAcquire()
	}
}

// Pop removes and returns an element from the queue.
// Returns (zero-value, ErrEmpty) if no item is available, or
// (zero-value, ErrClosed) once the queue is closed and drained.
func (q *Bounded[T]) Pop() (T, error) {
	sw := spin.Wait{}
	head := q.head.LoadAcquire()
	for {
		index := head & (q.markBit - 1)
		lap := head &^ (q.oneLap - 1)
		slot := &q.buffer[index]
		stamp := slot.stamp.LoadAcquire()

		if stamp == head+1 {
			// Slot holds this lap's item; try to claim it.
			newHead := head + 1
			if index+1 == q.capacity {
				newHead = lap + q.oneLap
			}
			if q.head.CompareAndSwapAcqRel(head, newHead) {
				elem := slot.data
				var zero T
				slot.data = zero
				// Free the slot for the next lap's push.
				slot.stamp.StoreRelease(head + q.oneLap)
				return elem, nil
			}
		} else if stamp == head {
			// Slot not yet written for this lap. If the tail has not
			// moved past us the queue is empty from this consumer's
			// view; otherwise a push claimed the slot and its write is
			// in flight.
			tail := q.tail.LoadAcquire()
			if tail&^q.markBit == head {
				var zero T
				if tail&q.markBit != 0 {
					return zero, ErrClosed
				}
				return zero, ErrEmpty
			}
		}

		sw.Once()
		head = q.head.LoadAcquire()
	}
}

// Close shuts the queue down by marking the tail cursor. Idempotent.
// Returns true if this call closed the queue.
func (q *Bounded[T]) Close() bool {
	for {
		tail := q.tail.LoadAcquire()
		if tail&q.markBit != 0 {
			return false
		}
		if q.tail.CompareAndSwapAcqRel(tail, tail|q.markBit) {
			return true
		}
	}
}

// IsClosed reports whether the queue has been closed.
func (q *Bounded[T]) IsClosed() bool {
	return q.tail.LoadAcquire()&q.markBit != 0
}

// Len returns the number of items in the queue.
func (q *Bounded[T]) Len() int {
	for {
		tail := q.tail.LoadAcquire()
		head := q.head.LoadAcquire()

		// Re-read to confirm the snapshot is consistent.
		if q.tail.LoadAcquire() != tail {
			continue
		}

		hix := head & (q.markBit - 1)
		tix := tail & (q.markBit - 1)
		switch {
		case hix < tix:
			return int(tix - hix)
		case hix > tix:
			return int(q.capacity - hix + tix)
		case tail&^q.markBit == head:
			return 0
		default:
			return int(q.capacity)
		}
	}
}

// Cap returns the queue capacity.
func (q *Bounded[T]) Cap() int {
	return int(q.capacity)
}

// IsEmpty reports whether the queue holds no items.
func (q *Bounded[T]) IsEmpty() bool {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	// Equal cursors mean every pushed item has been popped. The head can
	// only catch up to the tail, never overtake it.
	return tail&^q.markBit == head
}

// IsFull reports whether the queue has no free slots.
func (q *Bounded[T]) IsFull() bool {
	tail := q.tail.LoadAcquire()
	head := q.head.LoadAcquire()
	// The head lags one full lap exactly when every slot is occupied.
	return head+q.oneLap == tail&^q.markBit
}

// String implements fmt.Stringer.
func (q *Bounded[T]) String() string {
	return fmt.Sprintf("cq.Bounded{len: %d, cap: %d, closed: %t}",
		q.Len(), q.Cap(), q.IsClosed())
}
