// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

// NewQueue creates a queue for the given capacity policy.
//
// The capacity selects one of three engines, fixed for the lifetime of the
// queue:
//
//	Unlimited    → Unbounded (growable block list)
//	capacity 1   → Single (rendezvous cell)
//	capacity >=2 → Bounded (slot ring)
//
// Capacity is exact, not rounded: a bounded queue accepts exactly capacity
// items before reporting ErrFull.
//
// Panics if capacity is zero or any other non-positive value except
// Unlimited.
//
// Example:
//
//	q := cq.NewQueue[string](2)
//
//	a, b, c := "a", "b", "c"
//	q.Push(&a)                  // nil
//	q.Push(&b)                  // nil
//	q.Push(&c)                  // ErrFull; c stays with the caller
//
//	q.Close()                   // true: no more pushes
//	q.Pop()                     // "a", nil - residual items drain
//	q.Pop()                     // "b", nil
//	q.Pop()                     // ErrClosed: shut down and drained
func NewQueue[T any](capacity int) Queue[T] {
	switch {
	case capacity == Unlimited:
		return NewUnbounded[T]()
	case capacity == 1:
		return NewSingle[T]()
	case capacity > 1:
		return NewBounded[T](capacity)
	default:
		panic("cq: capacity must be positive or Unlimited")
	}
}
