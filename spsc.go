// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// SPSC is a single-producer single-consumer bounded queue.
//
// It uses the identical per-slot ticket protocol as [MPMC]: a slot is
// EMPTY for generation i while seq == i, and FILLED for generation i
// while seq == i+1. The only difference is on the index atomics —
// head is written only by the consumer and tail only by the producer,
// so neither CAS nor fetch-add is ever needed there; plain relaxed
// loads from the owning side and relaxed stores suffice, each cursor
// having exactly one writer. Calling TryEnqueue from more than one
// goroutine, or TryDequeue from more than one goroutine, is undefined
// behavior.
//
// Memory: n slots for capacity n (one ticket + one payload per slot).
type SPSC[T any] struct {
	_        pad
	tail     atomix.Uint64 // producer writes here
	_        pad
	head     atomix.Uint64 // consumer writes here
	_        pad
	buffer   []spscSlot[T]
	mask     uint64
	capacity uint64
}

type spscSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort
}

// NewSPSC creates a new SPSC queue.
// Capacity rounds up to the next power of 2; a request below 1 rounds
// to capacity 1.
func NewSPSC[T any](capacity int) *SPSC[T] {
	n := uint64(roundToPow2(capacity))
	q := &SPSC[T]{
		buffer:   make([]spscSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// TryEnqueue adds an element to the queue (producer only).
// Returns nil on success, ErrWouldBlock if the queue is full.
func (q *SPSC[T]) TryEnqueue(elem *T) error {
	tail := q.tail.LoadRelaxed()
	slot := &q.buffer[tail&q.mask]

	if slot.seq.LoadAcquire() != tail {
		// consumer hasn't released the previous occupant of this
		// slot's generation yet: the queue is full.
		return ErrWouldBlock
	}

	slot.data = *elem
	slot.seq.StoreRelease(tail + 1)
	q.tail.StoreRelaxed(tail + 1)
	return nil
}

// TryDequeue removes and returns an element (consumer only).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *SPSC[T]) TryDequeue() (T, error) {
	head := q.head.LoadRelaxed()
	slot := &q.buffer[head&q.mask]

	if slot.seq.LoadAcquire() != head+1 {
		var zero T
		return zero, ErrWouldBlock
	}

	elem := slot.data
	var zero T
	slot.data = zero
	slot.seq.StoreRelease(head + q.capacity)
	q.head.StoreRelaxed(head + 1)
	return elem, nil
}

// EnqueueUntil repeatedly attempts TryEnqueue until it succeeds or
// deadline passes. Returns true on success.
func (q *SPSC[T]) EnqueueUntil(elem *T, deadline time.Time) bool {
	sw := spin.Wait{}
	for {
		if err := q.TryEnqueue(elem); err == nil {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		sw.Once()
	}
}

// DequeueUntil repeatedly attempts TryDequeue until it succeeds or
// deadline passes. Returns the element and true on success.
func (q *SPSC[T]) DequeueUntil(deadline time.Time) (T, bool) {
	sw := spin.Wait{}
	for {
		if v, err := q.TryDequeue(); err == nil {
			return v, true
		}
		if !time.Now().Before(deadline) {
			var zero T
			return zero, false
		}
		sw.Once()
	}
}

// Cap returns the queue capacity.
func (q *SPSC[T]) Cap() int {
	return int(q.capacity)
}

// Size returns an approximate element count (tail - head).
//
// Safe to call from either the producer or the consumer goroutine, but
// the result may be stale by the time it's observed since the other
// side's cursor is read with an acquire load rather than serialized
// against it. The result is clamped to [0, capacity]. Advisory only.
func (q *SPSC[T]) Size() int {
	head := q.head.LoadAcquire()
	tail := q.tail.LoadAcquire()
	if tail < head {
		return 0
	}
	if n := tail - head; n < q.capacity {
		return int(n)
	}
	return int(q.capacity)
}
