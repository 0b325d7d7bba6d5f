// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cq_test

import (
	"errors"
	"runtime"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/cq"
	"code.hybscloud.com/iox"
	"github.com/valyala/fastrand"
)

// =============================================================================
// Concurrency Stress Tests
//
// These tests verify the no-loss no-duplication property: at quiescence the
// multiset of popped items equals the multiset of pushed items. Unlike
// threshold-based designs, nothing may go missing here - the close protocol
// guarantees an exact drain.
//
// The tests use cross-variable acquire/release ordering that the race
// detector cannot track; they are skipped under -race.
// =============================================================================

// jitter occasionally yields the goroutine to shuffle interleavings.
func jitter() {
	if fastrand.Uint32n(64) == 0 {
		runtime.Gosched()
	}
}

// stressDrain drives numP producers and numC consumers against q until
// every one of numP*itemsPerProd uniquely tagged items has been popped
// exactly once. Tags are producerID*itemsPerProd + seq.
func stressDrain(t *testing.T, q cq.Queue[int], numP, numC, itemsPerProd int, timeout time.Duration) {
	t.Helper()

	expectedTotal := numP * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)
	var consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	var wg sync.WaitGroup
	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				for q.Push(&v) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
				jitter()
			}
		}(p)
	}

	for range numC {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := q.Pop()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				if v < 0 || v >= expectedTotal {
					t.Errorf("value out of range: %d", v)
					continue
				}
				seen[v].Add(1)
				consumed.Add(1)
				jitter()
			}
		}()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timeout after %v: consumed %d of %d", timeout, consumed.Load(), expectedTotal)
	}
	for i := range expectedTotal {
		if c := seen[i].Load(); c != 1 {
			t.Fatalf("item %d: seen %d times, want exactly once", i, c)
		}
	}
	if l := q.Len(); l != 0 {
		t.Fatalf("Len at quiescence: got %d, want 0", l)
	}
}

// TestBoundedStress runs 8x8 producers/consumers through a ring far
// smaller than the item count.
func TestBoundedStress(t *testing.T) {
	if cq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}
	stressDrain(t, cq.NewBounded[int](64), 8, 8, 10000, 30*time.Second)
}

// TestBoundedStressOddCapacity uses a non-power-of-2 ring to stress the
// exact-capacity lap encoding under contention.
func TestBoundedStressOddCapacity(t *testing.T) {
	if cq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}
	stressDrain(t, cq.NewBounded[int](37), 4, 4, 10000, 30*time.Second)
}

// TestUnboundedStress crosses hundreds of block boundaries from multiple
// producers while consumers reclaim drained blocks.
func TestUnboundedStress(t *testing.T) {
	if cq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}
	stressDrain(t, cq.NewUnbounded[int](), 8, 8, 10000, 30*time.Second)
}

// TestSingleStress forces every transfer through one rendezvous cell.
func TestSingleStress(t *testing.T) {
	if cq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}
	stressDrain(t, cq.NewSingle[int](), 4, 4, 2000, 30*time.Second)
}

// =============================================================================
// Per-Producer FIFO
// =============================================================================

// TestPerProducerFIFO verifies that one producer's items are always popped
// in submission order relative to each other, regardless of interleaving
// with other producers.
func TestPerProducerFIFO(t *testing.T) {
	if cq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}

	const (
		numP         = 4
		itemsPerProd = 20000
		timeout      = 30 * time.Second
	)

	q := cq.NewUnbounded[int]()
	var wg sync.WaitGroup
	for p := range numP {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				q.Push(&v)
				jitter()
			}
		}(p)
	}

	// Single consumer checks per-producer monotonicity on the fly.
	lastSeq := [numP]int{}
	for i := range lastSeq {
		lastSeq[i] = -1
	}
	deadline := time.Now().Add(timeout)
	backoff := iox.Backoff{}
	for popped := 0; popped < numP*itemsPerProd; {
		if time.Now().After(deadline) {
			t.Fatalf("timeout: popped %d of %d", popped, numP*itemsPerProd)
		}
		v, err := q.Pop()
		if err != nil {
			backoff.Wait()
			continue
		}
		backoff.Reset()
		id, seq := v/itemsPerProd, v%itemsPerProd
		if seq <= lastSeq[id] {
			t.Fatalf("producer %d: seq %d popped after %d", id, seq, lastSeq[id])
		}
		lastSeq[id] = seq
		popped++
	}
	wg.Wait()
}

// =============================================================================
// Close Under Traffic
// =============================================================================

// TestCloseDuringTraffic closes the queue while producers and consumers
// run. Every push that succeeded must be popped exactly once; every
// producer must eventually observe ErrClosed; consumers must drain to
// ErrClosed and nothing may be lost in between.
func TestCloseDuringTraffic(t *testing.T) {
	if cq.RaceEnabled {
		t.Skip("skip: cross-variable memory ordering confuses the race detector")
	}

	// itemsPerProd is sized so no producer can finish its full quota
	// before the close fires; every producer must end on ErrClosed.
	const (
		numP         = 4
		numC         = 4
		itemsPerProd = 1 << 19
		timeout      = 30 * time.Second
	)

	q := cq.NewBounded[int](128)
	total := numP * itemsPerProd
	pushedOK := make([]atomix.Int32, total)
	seen := make([]atomix.Int32, total)
	var closedSeen atomix.Int32
	deadline := time.Now().Add(timeout)

	var prodWg, consWg sync.WaitGroup
	for p := range numP {
		prodWg.Add(1)
		go func(id int) {
			defer prodWg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				v := id*itemsPerProd + i
				for {
					err := q.Push(&v)
					if err == nil {
						pushedOK[v].Add(1)
						backoff.Reset()
						break
					}
					if errors.Is(err, cq.ErrClosed) {
						closedSeen.Add(1)
						return
					}
					if time.Now().After(deadline) {
						return
					}
					backoff.Wait()
				}
				jitter()
			}
		}(p)
	}

	for range numC {
		consWg.Add(1)
		go func() {
			defer consWg.Done()
			backoff := iox.Backoff{}
			for {
				if time.Now().After(deadline) {
					return
				}
				v, err := q.Pop()
				if err == nil {
					seen[v].Add(1)
					backoff.Reset()
					continue
				}
				if errors.Is(err, cq.ErrClosed) {
					return
				}
				backoff.Wait()
			}
		}()
	}

	// Let traffic flow, then shut down mid-stream.
	time.Sleep(5 * time.Millisecond)
	q.Close()

	prodWg.Wait()
	consWg.Wait()

	if time.Now().After(deadline) {
		t.Fatal("timeout waiting for quiescence")
	}
	if closedSeen.Load() != numP {
		t.Fatalf("producers observing ErrClosed: got %d, want %d", closedSeen.Load(), numP)
	}
	for i := range total {
		p, s := pushedOK[i].Load(), seen[i].Load()
		if p == 1 && s != 1 {
			t.Fatalf("item %d: pushed but seen %d times", i, s)
		}
		if p == 0 && s != 0 {
			t.Fatalf("item %d: never pushed but seen %d times", i, s)
		}
	}
}
