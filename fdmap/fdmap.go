/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package fdmap is a fixed-capacity FNV-1a chaining hash map keyed by file
// descriptor, used only by the generic poll(2) backend in package poller to
// translate a descriptor into its registered interest mask and user pointer
// (poll(2) itself has no descriptor-to-metadata association, unlike
// epoll/kqueue/event-ports). Chain nodes are drawn from a slab.Pool so the
// hot path never calls into the allocator.
package fdmap

import (
	"sync"

	"github.com/nabbar/staticd/slab"
)

type node struct {
	key   int
	value any
	next  int32
}

const noNext int32 = -1

// Map is a fixed-capacity chaining hash map from int file descriptor to an
// opaque value. The zero value is not usable; construct with New.
type Map struct {
	mu      sync.Mutex
	buckets []int32
	nodes   *slab.Pool[node]
}

// New allocates a Map able to hold exactly capacity entries.
func New(capacity int) (*Map, error) {
	if capacity <= 0 {
		return nil, ErrorCapacityInvalid.Error(nil)
	}

	pool, err := slab.New[node](capacity)
	if err != nil {
		return nil, err
	}

	buckets := make([]int32, capacity)
	for i := range buckets {
		buckets[i] = noNext
	}

	return &Map{buckets: buckets, nodes: pool}, nil
}

func hashFNV1a(key int) uint32 {
	const (
		offset32 = 2166136261
		prime32  = 16777619
	)

	h := uint32(offset32)
	u := uint64(key)
	for i := 0; i < 8; i++ {
		h ^= uint32(u & 0xff)
		h *= prime32
		u >>= 8
	}

	return h
}

func (m *Map) bucketFor(key int) int {
	return int(hashFNV1a(key) % uint32(len(m.buckets)))
}

// Add inserts key/value, failing with ErrorMapFull once the backing pool is
// exhausted. Re-adding an existing key appends a shadowing node rather than
// replacing in place; callers in this codebase always Remove before Add.
func (m *Map) Add(key int, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, slot, ok := m.nodes.Acquire()
	if !ok {
		return ErrorMapFull.Error(nil)
	}

	b := m.bucketFor(key)
	slot.key = key
	slot.value = value
	slot.next = m.buckets[b]
	m.buckets[b] = idx

	return nil
}

// Get returns the value stored for key, and whether it was found.
func (m *Map) Get(key int) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for idx := m.buckets[m.bucketFor(key)]; idx != noNext; {
		n := m.nodes.At(idx)
		if n.key == key {
			return n.value, true
		}
		idx = n.next
	}

	return nil, false
}

// Remove deletes the first entry matching key, returning whether one was
// found.
func (m *Map) Remove(key int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b := m.bucketFor(key)
	prev := noNext
	idx := m.buckets[b]

	for idx != noNext {
		n := m.nodes.At(idx)
		if n.key == key {
			if prev == noNext {
				m.buckets[b] = n.next
			} else {
				m.nodes.At(prev).next = n.next
			}
			_ = m.nodes.Release(idx)
			return true
		}
		prev = idx
		idx = n.next
	}

	return false
}
