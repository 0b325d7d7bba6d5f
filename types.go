// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

// Unlimited is the capacity policy for a queue that grows without bound.
// Pass it to NewQueue or New to select the unbounded engine; Cap returns
// it for unbounded queues.
const Unlimited = -1

// Queue is the combined producer-consumer interface for a closable queue.
//
// Queue provides non-blocking Push and Pop plus a cooperative close
// protocol. Exactly three implementations exist — Bounded, Unbounded and
// Single — selected once at construction and never switched.
//
// All snapshot methods (Len, IsEmpty, IsFull, IsClosed) are advisory: the
// value may be stale the instant after it is returned when other goroutines
// are active.
//
// Example:
//
//	q := cq.NewQueue[int](1024)
//
//	v := 42
//	if err := q.Push(&v); err != nil {
//	    // Handle full or closed queue
//	}
//
//	elem, err := q.Pop()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]

	// Len returns the number of items currently in the queue.
	Len() int

	// Cap returns the queue capacity, or Unlimited for unbounded queues.
	Cap() int

	// IsEmpty reports whether the queue holds no items.
	IsEmpty() bool

	// IsFull reports whether the queue has no free slots.
	// Always false for unbounded queues.
	IsFull() bool

	// Close shuts the queue down. No more items can be pushed; remaining
	// items can still be popped. Returns true if this call closed the
	// queue, false if it was already closed.
	Close() bool

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// Producer is the interface for pushing elements.
//
// The element is passed by pointer to avoid copying large structs; the
// queue stores a copy of the pointed-to value. On ErrFull or ErrClosed
// nothing was consumed and the caller still owns the value.
type Producer[T any] interface {
	// Push adds an element to the queue (non-blocking).
	// Returns nil on success, ErrFull if no slot is free, or ErrClosed if
	// the queue has been shut down. A closed queue rejects pushes even
	// when free slots remain.
	Push(elem *T) error
}

// Consumer is the interface for popping elements.
//
// The element is returned by value; the vacated slot is cleared so objects
// it referenced become collectible immediately.
type Consumer[T any] interface {
	// Pop removes and returns an element from the queue (non-blocking).
	// Returns (zero-value, ErrEmpty) if no item is available, or
	// (zero-value, ErrClosed) once the queue is both shut down and
	// drained. Items pushed before Close are always drained first.
	Pop() (T, error)
}
