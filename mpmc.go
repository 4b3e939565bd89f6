// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

import (
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MPMC is a CAS-based multi-producer multi-consumer bounded queue.
//
// Each slot carries its own sequence number (ticket) rather than a
// shared lock: a slot is EMPTY for generation i while seq == i, and
// FILLED for generation i while seq == i+1. A producer commits a
// reservation with CompareAndSwap on tail, writes the payload, then
// publishes it with a release store of seq. A consumer is symmetric on
// head. The release-of-seq by the writer happens-before the matching
// acquire-of-seq by the reader of the same slot, which is what makes
// the payload write visible without any lock. Wrap-around is ABA-safe
// because seq increases by capacity every generation instead of
// cycling back through old values.
//
// Memory: n slots for capacity n (one ticket + one payload per slot).
type MPMC[T any] struct {
	_        pad
	tail     atomix.Uint64 // producer index
	_        pad
	head     atomix.Uint64 // consumer index
	_        pad
	buffer   []mpmcSlot[T]
	mask     uint64
	capacity uint64
}

type mpmcSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort
}

// NewMPMC creates a new CAS-based MPMC queue.
// Capacity rounds up to the next power of 2; a request below 1 rounds
// to capacity 1.
func NewMPMC[T any](capacity int) *MPMC[T] {
	n := uint64(roundToPow2(capacity))
	q := &MPMC[T]{
		buffer:   make([]mpmcSlot[T], n),
		mask:     n - 1,
		capacity: n,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// TryEnqueue adds an element to the queue (multiple producers safe).
// Returns nil on success, ErrWouldBlock if the queue is full.
func (q *MPMC[T]) TryEnqueue(elem *T) error {
	sw := spin.Wait{}
	for {
		tail := q.tail.LoadRelaxed()
		slot := &q.buffer[tail&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(tail)

		switch {
		case diff == 0:
			if q.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = *elem
				slot.seq.StoreRelease(tail + 1)
				return nil
			}
			// lost the CAS race: tail moved, retry with fresh tail
		case diff < 0:
			// this slot's generation trails tail: a consumer has not
			// yet released it, the queue is full.
			return ErrWouldBlock
		default:
			// another producer already advanced this slot past tail;
			// reload tail and retry.
		}
		sw.Once()
	}
}

// TryDequeue removes and returns an element (multiple consumers safe).
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *MPMC[T]) TryDequeue() (T, error) {
	sw := spin.Wait{}
	for {
		head := q.head.LoadRelaxed()
		slot := &q.buffer[head&q.mask]
		seq := slot.seq.LoadAcquire()
		diff := int64(seq) - int64(head+1)

		switch {
		case diff == 0:
			if q.head.CompareAndSwapAcqRel(head, head+1) {
				elem := slot.data
				var zero T
				slot.data = zero
				slot.seq.StoreRelease(head + q.capacity)
				return elem, nil
			}
		case diff < 0:
			var zero T
			return zero, ErrWouldBlock
		default:
			// another consumer already advanced head; reload and retry.
		}
		sw.Once()
	}
}

// EnqueueUntil repeatedly attempts TryEnqueue until it succeeds or
// deadline passes. Returns true on success.
func (q *MPMC[T]) EnqueueUntil(elem *T, deadline time.Time) bool {
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
func (q *MPMC[T]) DequeueUntil(deadline time.Time) (T, bool) {
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

// EnqueueMany inserts up to len(items) elements with a single
// fetch-add reservation on tail instead of one CAS loop per item.
//
// Once the fetch-add commits, every reserved index is filled: if a
// slot's prior occupant hasn't been drained yet, EnqueueMany spin-waits
// for the matching consumer to release it rather than returning
// partial counts for reasons other than len(items) > capacity. This
// call cannot be cancelled once it starts — the caller must let it run
// to completion.
//
// Returns the number actually inserted, which is len(items) clamped to
// capacity (0 if items is empty).
func (q *MPMC[T]) EnqueueMany(items []T) int {
	want := len(items)
	if want > int(q.capacity) {
		want = int(q.capacity)
	}
	if want == 0 {
		return 0
	}

	start := q.tail.AddAcqRel(uint64(want)) - uint64(want)
	for i := 0; i < want; i++ {
		idx := start + uint64(i)
		slot := &q.buffer[idx&q.mask]

		sw := spin.Wait{}
		for slot.seq.LoadAcquire() != idx {
			sw.Once()
		}

		slot.data = items[i]
		slot.seq.StoreRelease(idx + 1)
	}
	return want
}

// DequeueMany extracts up to len(out) elements that are contiguously
// ready starting at head.
//
// Unlike EnqueueMany, this never waits: a consumer that optimistically
// reserved a range would have to wait on the slowest producer in that
// range, which can deadlock when no further items will ever be
// produced. Instead DequeueMany counts the run of already-FILLED
// slots, then claims only that run with one CAS on head. Returns the
// number actually extracted, which may be 0.
func (q *MPMC[T]) DequeueMany(out []T) int {
	n := len(out)
	if n > int(q.capacity) {
		n = int(q.capacity)
	}
	if n == 0 {
		return 0
	}

	for {
		start := q.head.LoadRelaxed()

		ready := 0
		for ready < n {
			idx := start + uint64(ready)
			slot := &q.buffer[idx&q.mask]
			if slot.seq.LoadAcquire() != idx+1 {
				break
			}
			ready++
		}
		if ready == 0 {
			return 0
		}

		if q.head.CompareAndSwapAcqRel(start, start+uint64(ready)) {
			for i := 0; i < ready; i++ {
				idx := start + uint64(i)
				slot := &q.buffer[idx&q.mask]
				out[i] = slot.data
				var zero T
				slot.data = zero
				slot.seq.StoreRelease(idx + q.capacity)
			}
			return ready
		}
		// another consumer advanced head first; restart the scan.
	}
}

// Cap returns the queue capacity.
func (q *MPMC[T]) Cap() int {
	return int(q.capacity)
}

// Size returns an approximate element count (tail - head).
//
// Under concurrent mutation this is a best-effort snapshot: head and
// tail are loaded independently, so the result may momentarily be
// stale. It is clamped to capacity, since tail can run ahead of
// head+capacity between the two loads or while EnqueueMany waits on
// reserved slots. Do not use it for correctness decisions.
func (q *MPMC[T]) Size() int {
	head := q.head.LoadRelaxed()
	tail := q.tail.LoadRelaxed()
	n := tail - head
	if n > q.capacity {
		n = q.capacity
	}
	return int(n)
}
