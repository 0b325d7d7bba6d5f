// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq

// Options configures queue creation.
type Options struct {
	// Capacity policy: Unlimited, or a bound >= 1.
	capacity int
}

// Builder creates queues with fluent configuration.
//
// The builder selects the engine from the capacity policy:
//
//	q := cq.Build[Event](cq.New(1024))        // → Bounded
//	q := cq.Build[Event](cq.New(1))           // → Single
//	q := cq.Build[Event](cq.New(8).Unbounded()) // → Unbounded
//
// Direct constructors (NewBounded, NewUnbounded, NewSingle) remain the
// recommended way to obtain a concrete engine type.
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity policy.
//
// Capacity is exact: a queue built with capacity n accepts exactly n items
// before reporting ErrFull. Pass Unlimited for an unbounded queue.
//
// Panics if capacity is zero or any other non-positive value except
// Unlimited.
func New(capacity int) *Builder {
	if capacity < 1 && capacity != Unlimited {
		panic("cq: capacity must be positive or Unlimited")
	}
	return &Builder{opts: Options{capacity: capacity}}
}

// Unbounded switches the builder to the unbounded capacity policy.
func (b *Builder) Unbounded() *Builder {
	b.opts.capacity = Unlimited
	return b
}

// Build creates a Queue[T] with automatic engine selection.
//
// Engine selection:
//
//	Unlimited    → Unbounded (growable block list)
//	capacity 1   → Single (rendezvous cell)
//	capacity >=2 → Bounded (slot ring)
func Build[T any](b *Builder) Queue[T] {
	return NewQueue[T](b.opts.capacity)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padShort is padding to fill cache line after 8-byte field.
type padShort [64 - 8]byte
