// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

import (
	"fmt"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const (
	// blockCap is the number of slots per block. Position indices lap
	// every positionLap positions; the extra position is the ghost offset
	// that serializes successor-block installation.
	blockCap    = 31
	positionLap = blockCap + 1

	// indexShift keeps the low bit of head/tail indices free for the mark:
	// in the tail index it means closed, in the head index it means the
	// current block's successor is known to exist.
	indexShift = 1
	indexMark  = 1
	indexStep  = 1 << indexShift
)

// Slot state bits. A slot transitions unset → written → written|read
// exactly once; blocks are never reused, so a slot's identity is permanent.
const (
	slotWritten uint64 = 1 << 0
	slotRead    uint64 = 1 << 1
)

type unboundedSlot[T any] struct {
	state atomix.Uint64
	data  T
}

// block is one fixed-capacity chunk in the forward-only chain. Links are
// typed atomic pointers so the collector can see them: once the head
// cursor leaves a fully consumed block, the chain holds no reference to it
// and the GC reclaims it as soon as in-flight consumers return.
type block[T any] struct {
	next  atomic.Pointer[block[T]]
	slots [blockCap]unboundedSlot[T]
}

type position[T any] struct {
	index atomix.Uint64
	block atomic.Pointer[block[T]]
}

// Unbounded is a growable multi-producer multi-consumer queue.
//
// Storage is a singly linked chain of fixed-capacity blocks. Head and tail
// cursors are monotonically increasing indices paired with a block
// reference; they advance across block boundaries, allocating new blocks
// lazily. Because indices never wrap and blocks are never reused, a stale
// cursor cannot alias reclaimed storage.
//
// Push never returns ErrFull.
//
// Memory: grows by one block (31 slots) at a time; fully consumed blocks
// are released to the collector.
type Unbounded[T any] struct {
	_    pad
	tail position[T]
	_    pad
	head position[T]
	_    pad
}

// NewUnbounded creates an unbounded queue. The first block is allocated on
// the first push.
func NewUnbounded[T any]() *Unbounded[T] {
	return &Unbounded[T]{}
}

// Push adds an element to the queue.
// Returns ErrClosed if the queue was closed, before any allocation.
func (q *Unbounded[T]) Push(elem *T) error {
	sw := spin.Wait{}
	tail := q.tail.index.LoadAcquire()
	blk := q.tail.block.Load()
	for {
		if tail&indexMark != 0 {
			return ErrClosed
		}

		offset := (tail >> indexShift) % positionLap
		if offset == blockCap {
			// A successor installation is in flight; its publisher will
			// republish the tail index at the next lap.
			sw.Once()
			tail = q.tail.index.LoadAcquire()
			blk = q.tail.block.Load()
			continue
		}

		// The first block is installed lazily by whichever producer
		// gets here first; the loser drops its allocation.
		if blk == nil {
			b := new(block[T])
			if q.tail.block.CompareAndSwap(nil, b) {
				q.head.block.Store(b)
				blk = b
			} else {
				blk = q.tail.block.Load()
				continue
			}
		}

		newTail := tail + indexStep
		if q.tail.index.CompareAndSwapAcqRel(tail, newTail) {
			// Claiming the last slot of a block also installs its
			// successor: publish the block first, then the republished
			// index releases the waiting producers, then the chain link
			// releases the waiting consumers.
			if offset+1 == blockCap {
				next := new(block[T])
				q.tail.block.Store(next)
				q.tail.index.StoreRelease(newTail + indexStep)
				blk.next.Store(next)
			}

			slot := &blk.slots[offset]
			slot.data = *elem
			slot.state.StoreRelease(slotWritten)
			return nil
		}

		sw.Once()
		tail = q.tail.index.LoadAcquire()
		blk = q.tail.block.Load()
	}
}

// Pop removes and returns an element from the queue.
// Returns (zero-value, ErrEmpty) if no item is available, or
// (zero-value, ErrClosed) once the queue is closed and drained.
func (q *Unbounded[T]) Pop() (T, error) {
	sw := spin.Wait{}
	head := q.head.index.LoadAcquire()
	blk := q.head.block.Load()
	for {
		offset := (head >> indexShift) % positionLap
		if offset == blockCap {
			// The consumer crossing into the next block has not
			// republished the head index yet.
			sw.Once()
			head = q.head.index.LoadAcquire()
			blk = q.head.block.Load()
			continue
		}

		newHead := head + indexStep
		if newHead&indexMark == 0 {
			// No successor hint on the head: the queue might be empty.
			tail := q.tail.index.LoadAcquire()
			if head>>indexShift == tail>>indexShift {
				var zero T
				if tail&indexMark != 0 {
					return zero, ErrClosed
				}
				return zero, ErrEmpty
			}
			// The tail is already in a later block, so pops from this
			// block can skip the emptiness check.
			if (head>>indexShift)/positionLap != (tail>>indexShift)/positionLap {
				newHead |= indexMark
			}
		}

		if blk == nil {
			// First push still installing the first block.
			sw.Once()
			head = q.head.index.LoadAcquire()
			blk = q.head.block.Load()
			continue
		}

		if q.head.index.CompareAndSwapAcqRel(head, newHead) {
			// Leaving the last slot of a block drops the chain's
			// reference to it and moves the head to the successor.
			if offset+1 == blockCap {
				next := blk.next.Load()
				for next == nil {
					sw.Once()
					next = blk.next.Load()
				}
				nextIndex := (newHead &^ indexMark) + indexStep
				if next.next.Load() != nil {
					nextIndex |= indexMark
				}
				q.head.block.Store(next)
				q.head.index.StoreRelease(nextIndex)
			}

			slot := &blk.slots[offset]
			// The producer won its tail CAS before this slot could be
			// claimed, so the write flag is guaranteed to arrive; spin
			// through the in-flight write.
			state := slot.state.LoadAcquire()
			for state&slotWritten == 0 {
				sw.Once()
				state = slot.state.LoadAcquire()
			}

			elem := slot.data
			var zero T
			slot.data = zero
			slot.state.StoreRelease(slotWritten | slotRead)
			return elem, nil
		}

		sw.Once()
		head = q.head.index.LoadAcquire()
		blk = q.head.block.Load()
	}
}

// Close shuts the queue down by marking the tail index. Idempotent.
// Returns true if this call closed the queue.
func (q *Unbounded[T]) Close() bool {
	sw := spin.Wait{}
	for {
		tail := q.tail.index.LoadAcquire()
		if tail&indexMark != 0 {
			return false
		}
		if (tail>>indexShift)%positionLap == blockCap {
			// A successor installation is republishing the tail index;
			// marking now would be overwritten by that store.
			sw.Once()
			continue
		}
		if q.tail.index.CompareAndSwapAcqRel(tail, tail|indexMark) {
			return true
		}
	}
}

// IsClosed reports whether the queue has been closed.
func (q *Unbounded[T]) IsClosed() bool {
	return q.tail.index.LoadAcquire()&indexMark != 0
}

// Len returns the number of items in the queue. Approximated from cursor
// distance; exact whenever no push or pop is in flight.
func (q *Unbounded[T]) Len() int {
	for {
		tail := q.tail.index.LoadAcquire()
		head := q.head.index.LoadAcquire()

		// Re-read to confirm the snapshot is consistent.
		if q.tail.index.LoadAcquire() != tail {
			continue
		}

		// Erase the mark bits.
		tail &^= indexStep - 1
		head &^= indexStep - 1

		// Indices sitting on the ghost position belong to the next lap.
		if (tail>>indexShift)%positionLap == positionLap-1 {
			tail += indexStep
		}
		if (head>>indexShift)%positionLap == positionLap-1 {
			head += indexStep
		}

		// Rotate so that the head falls into the first lap.
		lap := (head >> indexShift) / positionLap
		tail -= (lap * positionLap) << indexShift
		head -= (lap * positionLap) << indexShift

		tail >>= indexShift
		head >>= indexShift

		// One position per lap is the ghost, not a slot.
		return int(tail - head - tail/positionLap)
	}
}

// Cap returns Unlimited.
func (q *Unbounded[T]) Cap() int {
	return Unlimited
}

// IsEmpty reports whether the queue holds no items.
func (q *Unbounded[T]) IsEmpty() bool {
	head := q.head.index.LoadAcquire()
	tail := q.tail.index.LoadAcquire()
	return head>>indexShift == tail>>indexShift
}

// IsFull always reports false.
func (q *Unbounded[T]) IsFull() bool {
	return false
}

// String implements fmt.Stringer.
func (q *Unbounded[T]) String() string {
	return fmt.Sprintf("cq.Unbounded{len: %d, closed: %t}",
		q.Len(), q.IsClosed())
}
