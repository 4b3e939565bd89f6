// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package lfq provides bounded, lock-free FIFO queue implementations
// for in-process hand-off between goroutines.
//
// Both variants share the same per-slot ticket (sequence number)
// protocol:
//
//   - SPSC: Single-Producer Single-Consumer (ticket protocol, relaxed
//     cursors)
//   - MPMC: Multi-Producer Multi-Consumer (ticket protocol, CAS cursors)
//
// Only MPMC exposes batched EnqueueMany/DequeueMany; both variants
// expose TryEnqueue/TryDequeue and the deadline-polling EnqueueUntil/
// DequeueUntil.
//
// # Quick Start
//
//	q := lfq.NewSPSC[Event](1024)
//	q := lfq.NewMPMC[*Request](4096)
//
// # Basic Usage
//
// Both queues share the same non-blocking shape for enqueueing and
// dequeueing:
//
//	q := lfq.NewMPMC[int](1024)
//
//	value := 42
//	if err := q.TryEnqueue(&value); lfq.IsWouldBlock(err) {
//	    // Queue is full - handle backpressure
//	}
//
//	elem, err := q.TryDequeue()
//	if lfq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Deadline Polling
//
// Both variants also expose a bounded-wait alternative that polls
// until it succeeds or a deadline passes:
//
//	ok := q.EnqueueUntil(&value, time.Now().Add(50*time.Millisecond))
//	elem, ok := q.DequeueUntil(time.Now().Add(50*time.Millisecond))
//
// # Batched Operations (MPMC only)
//
// EnqueueMany reserves a contiguous index range with a single
// fetch-add, then fills each reserved slot — waiting briefly on any
// slot whose previous occupant hasn't been drained yet. Once the
// fetch-add commits the call cannot be cancelled; the caller must let
// it run to completion.
//
// DequeueMany never waits: it claims only the run of slots that are
// already filled, so it returns promptly with fewer than requested (or
// zero) rather than blocking on a producer that may never arrive.
//
//	n := q.EnqueueMany(batch)        // n == min(len(batch), q.Cap())
//	out := make([]Event, 32)
//	got := q.DequeueMany(out)        // got may be less than len(out)
//
// # Common Patterns
//
// Pipeline Stage (SPSC):
//
//	q := lfq.NewSPSC[Data](1024)
//
//	go func() { // Producer
//	    backoff := iox.Backoff{}
//	    for data := range input {
//	        for q.TryEnqueue(&data) != nil {
//	            backoff.Wait()
//	        }
//	        backoff.Reset()
//	    }
//	}()
//
//	go func() { // Consumer
//	    backoff := iox.Backoff{}
//	    for {
//	        data, err := q.TryDequeue()
//	        if err != nil {
//	            backoff.Wait()
//	            continue
//	        }
//	        backoff.Reset()
//	        process(data)
//	    }
//	}()
//
// Worker Pool (MPMC):
//
//	q := lfq.NewMPMC[Job](4096)
//
//	for range numWorkers {
//	    go func() {
//	        for {
//	            job, err := q.TryDequeue()
//	            if err == nil {
//	                job.Run()
//	            }
//	        }
//	    }()
//	}
//
//	func Submit(j Job) error {
//	    return q.TryEnqueue(&j)
//	}
//
// # Error Handling
//
// Queues return [ErrWouldBlock] when an operation cannot proceed. This
// error is sourced from [code.hybscloud.com/iox] for ecosystem
// consistency.
//
//	backoff := iox.Backoff{}
//	for {
//	    err := q.TryEnqueue(&item)
//	    if err == nil {
//	        backoff.Reset()
//	        break
//	    }
//	    if !lfq.IsWouldBlock(err) {
//	        return err // Unexpected error
//	    }
//	    backoff.Wait()
//	}
//
// For semantic error classification (delegates to iox):
//
//	lfq.IsWouldBlock(err)  // true if queue full/empty
//	lfq.IsSemantic(err)    // true if control flow signal
//	lfq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Capacity and Size
//
// Capacity rounds up to the next power of 2:
//
//	q := lfq.NewMPMC[int](3)     // Actual capacity: 4
//	q := lfq.NewMPMC[int](4)     // Actual capacity: 4
//	q := lfq.NewMPMC[int](1000)  // Actual capacity: 1024
//	q := lfq.NewMPMC[int](1024)  // Actual capacity: 1024
//
// A request below 1 rounds to capacity 1.
//
// Size() returns an approximate element count, always ≤ capacity, but
// it is a best-effort snapshot under concurrent mutation — do not use
// it for correctness decisions.
//
// # Thread Safety
//
// All queue operations are thread-safe within their access pattern
// constraints:
//
//   - SPSC: One producer goroutine, one consumer goroutine
//   - MPMC: Multiple producer and consumer goroutines
//
// Violating these constraints (e.g., multiple producers on SPSC) is
// undefined behavior, including data corruption.
//
// # Race Detection
//
// Go's race detector is not designed for lock-free algorithm
// verification: it tracks explicit synchronization primitives (mutex,
// channels, WaitGroup) but cannot observe happens-before relationships
// established purely through atomic acquire/release memory orderings.
//
// Both [SPSC] and [MPMC] protect non-atomic payload fields with a
// release store of a slot's sequence number on the writer side and an
// acquire load of the same sequence number on the reader side —
// correct under the Go memory model, but the race detector may still
// report false positives because it cannot track synchronization
// carried on a separate variable. Tests incompatible with race
// detection are excluded via //go:build !race; see [RaceEnabled].
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause/yield
// backoff in CAS retry loops and spin-waits.
package lfq
