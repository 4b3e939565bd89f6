// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Axgrav05/mlmpc-ring"
)

// TestMPMCFullRejection is scenario S3: capacity 4, one producer,
// try_enqueue called 5 times with no intervening dequeues. The first 4
// succeed, the fifth fails; after one dequeue a further enqueue
// succeeds again.
func TestMPMCFullRejection(t *testing.T) {
	q := lfq.NewMPMC[int](4)

	for i := range 4 {
		v := i
		if err := q.TryEnqueue(&v); err != nil {
			t.Fatalf("TryEnqueue(%d): %v", i, err)
		}
	}

	five := 5
	if err := q.TryEnqueue(&five); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("5th TryEnqueue: got %v, want ErrWouldBlock", err)
	}

	v, err := q.TryDequeue()
	if err != nil || v != 0 {
		t.Fatalf("TryDequeue: got (%d, %v), want (0, nil)", v, err)
	}

	if err := q.TryEnqueue(&five); err != nil {
		t.Fatalf("TryEnqueue after drain: %v", err)
	}
}

// TestMPMCEmptyRejection is scenario S4: a fresh queue's TryDequeue
// returns ErrWouldBlock and leaves state unchanged.
func TestMPMCEmptyRejection(t *testing.T) {
	q := lfq.NewMPMC[int](8)

	if _, err := q.TryDequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("TryDequeue on empty: got %v, want ErrWouldBlock", err)
	}
	if _, err := q.TryDequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("repeated TryDequeue on empty: got %v, want ErrWouldBlock", err)
	}
	if q.Size() != 0 {
		t.Fatalf("Size: got %d, want 0", q.Size())
	}
}

// TestMPMCEnqueueUntilDeadline is scenario S5: a full capacity-2 queue
// rejects EnqueueUntil once its deadline passes, within a sane window.
func TestMPMCEnqueueUntilDeadline(t *testing.T) {
	q := lfq.NewMPMC[int](2)
	one, two := 1, 2
	if err := q.TryEnqueue(&one); err != nil {
		t.Fatal(err)
	}
	if err := q.TryEnqueue(&two); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	v := 3
	ok := q.EnqueueUntil(&v, start.Add(50*time.Millisecond))
	elapsed := time.Since(start)

	if ok {
		t.Fatal("EnqueueUntil on full queue: got true, want false")
	}
	if elapsed < 30*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Fatalf("EnqueueUntil elapsed %v, want roughly 50ms", elapsed)
	}
}

// TestMPMCEnqueueManyClampsToCapacity is scenario S6: EnqueueMany on a
// capacity-16 queue with 1000 requested items inserts only 16, and a
// subsequent DequeueMany extracts them in order.
func TestMPMCEnqueueManyClampsToCapacity(t *testing.T) {
	q := lfq.NewMPMC[int](16)

	items := make([]int, 1000)
	for i := range items {
		items[i] = i
	}

	n := q.EnqueueMany(items)
	if n != 16 {
		t.Fatalf("EnqueueMany: got %d, want 16", n)
	}

	out := make([]int, 16)
	got := q.DequeueMany(out)
	if got != 16 {
		t.Fatalf("DequeueMany: got %d, want 16", got)
	}
	for i, v := range out {
		if v != i {
			t.Fatalf("out[%d] = %d, want %d", i, v, i)
		}
	}
}

// TestMPMCDequeueManyPartial exercises the non-reserving contiguous
// claim: DequeueMany returns only what's actually ready, never waiting
// on absent producers.
func TestMPMCDequeueManyPartial(t *testing.T) {
	q := lfq.NewMPMC[int](16)

	for i := range 5 {
		v := i
		if err := q.TryEnqueue(&v); err != nil {
			t.Fatal(err)
		}
	}

	out := make([]int, 10)
	got := q.DequeueMany(out)
	if got != 5 {
		t.Fatalf("DequeueMany: got %d, want 5", got)
	}

	out2 := make([]int, 10)
	if got2 := q.DequeueMany(out2); got2 != 0 {
		t.Fatalf("DequeueMany on drained queue: got %d, want 0", got2)
	}
}

// TestMPMCExactlyOnce is scenario S2 (at reduced scale for a unit test
// run): multiple producers each insert a distinct ID range using
// EnqueueMany, multiple consumers drain with DequeueMany, and the
// extracted multiset matches the inserted multiset exactly — no
// duplicates, no losses.
func TestMPMCExactlyOnce(t *testing.T) {
	const (
		producers        = 4
		consumers        = 4
		itemsPerProducer = 20_000
		enqBatch         = 64
		deqBatch         = 32
	)
	total := producers * itemsPerProducer

	q := lfq.NewMPMC[int](65536)

	var produced sync.WaitGroup
	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func(p int) {
			defer produced.Done()
			base := p * itemsPerProducer
			buf := make([]int, enqBatch)
			for i := 0; i < itemsPerProducer; {
				n := enqBatch
				if itemsPerProducer-i < n {
					n = itemsPerProducer - i
				}
				for j := 0; j < n; j++ {
					buf[j] = base + i + j
				}
				done := q.EnqueueMany(buf[:n])
				i += done
			}
		}(p)
	}

	visited := make([]int32, total)
	var visitedMu sync.Mutex
	var consumed sync.WaitGroup
	var producersDone int32
	var stop sync.WaitGroup
	stop.Add(1)
	go func() {
		produced.Wait()
		visitedMu.Lock()
		producersDone = 1
		visitedMu.Unlock()
		stop.Done()
	}()

	var dupMu sync.Mutex
	var duplicates, count int

	for c := 0; c < consumers; c++ {
		consumed.Add(1)
		go func() {
			defer consumed.Done()
			out := make([]int, deqBatch)
			for {
				got := q.DequeueMany(out)
				if got > 0 {
					dupMu.Lock()
					for i := 0; i < got; i++ {
						id := out[i]
						if visited[id] != 0 {
							duplicates++
						}
						visited[id] = 1
						count++
					}
					dupMu.Unlock()
					continue
				}
				visitedMu.Lock()
				done := producersDone == 1 && q.Size() == 0
				visitedMu.Unlock()
				if done {
					return
				}
				time.Sleep(time.Microsecond)
			}
		}()
	}

	stop.Wait()
	consumed.Wait()

	if duplicates != 0 {
		t.Fatalf("duplicates: got %d, want 0", duplicates)
	}
	if count != total {
		t.Fatalf("consumed: got %d, want %d", count, total)
	}
	for id, v := range visited {
		if v == 0 {
			t.Fatalf("id %d was never consumed", id)
		}
	}
}

// TestMPMCPowerOfTwoCapacity checks capacity rounding.
func TestMPMCPowerOfTwoCapacity(t *testing.T) {
	cases := map[int]int{0: 1, 1: 1, 2: 2, 3: 4, 4: 4, 5: 8, 1000: 1024}
	for req, want := range cases {
		q := lfq.NewMPMC[int](req)
		if got := q.Cap(); got != want {
			t.Errorf("NewMPMC(%d).Cap() = %d, want %d", req, got, want)
		}
	}
}

// TestMPMCSlotTicketQuiescence is invariant 6: at quiescence (queue
// empty, no in-flight operations), every slot's seq must satisfy the
// generation relation. We only have black-box access, so we check the
// externally observable consequence: after filling and fully draining
// capacity elements three times over, the queue behaves identically to
// a fresh one (same Cap, same TryDequeue-on-empty behavior).
func TestMPMCSlotTicketQuiescence(t *testing.T) {
	q := lfq.NewMPMC[int](8)

	for round := 0; round < 3; round++ {
		for i := range 8 {
			v := i
			if err := q.TryEnqueue(&v); err != nil {
				t.Fatalf("round %d enqueue %d: %v", round, i, err)
			}
		}
		for i := range 8 {
			v, err := q.TryDequeue()
			if err != nil || v != i {
				t.Fatalf("round %d dequeue %d: got (%d, %v)", round, i, v, err)
			}
		}
	}

	if q.Size() != 0 {
		t.Fatalf("Size after quiescence: got %d, want 0", q.Size())
	}
	if _, err := q.TryDequeue(); !errors.Is(err, lfq.ErrWouldBlock) {
		t.Fatalf("TryDequeue at quiescence: got %v, want ErrWouldBlock", err)
	}
}
