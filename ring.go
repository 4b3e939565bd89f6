// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package lfq

// roundToPow2 rounds n up to the next power of 2. Requests below 1
// round to capacity 1.
func roundToPow2(n int) int {
	if n < 1 {
		return 1
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

// pad is cache line padding to prevent false sharing between adjacent
// atomic fields (head, tail).
type pad [64]byte

// padShort is one cache line less the 8-byte ticket field. Placed after
// a slot's payload, it makes each slot at least 64 bytes long, so the
// tickets of adjacent slots never share a cache line.
type padShort [64 - 8]byte
