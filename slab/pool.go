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

// Package slab implements a fixed-capacity, index-addressed object pool.
// Go's garbage collector makes in-place free-list pointer threading inside
// the slots unnecessary and unsafe; instead the free list is a LIFO stack of
// indices into a pre-allocated slice of slots, which gives the same O(1)
// acquire/release and bounded footprint without unsafe.Pointer games.
package slab

import "sync"

// Pool is a fixed-size, mutex-guarded object pool of T. The zero value is
// not usable; construct with New.
type Pool[T any] struct {
	mu    sync.Mutex
	slots []T
	free  []int32 // LIFO stack of free slot indices, hottest first
	inuse []bool
}

// New allocates a Pool with room for exactly capacity slots.
func New[T any](capacity int) (*Pool[T], error) {
	if capacity <= 0 {
		return nil, ErrorCapacityInvalid.Error(nil)
	}

	p := &Pool[T]{
		slots: make([]T, capacity),
		free:  make([]int32, capacity),
		inuse: make([]bool, capacity),
	}

	for i := 0; i < capacity; i++ {
		p.free[i] = int32(capacity - 1 - i)
	}

	return p, nil
}

// Cap returns the pool's fixed capacity.
func (p *Pool[T]) Cap() int {
	return len(p.slots)
}

// Acquire pops the hottest free index off the stack and returns a pointer to
// its (zero-valued on first use) slot. ok is false when the pool is
// exhausted.
func (p *Pool[T]) Acquire() (index int32, slot *T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.free)
	if n == 0 {
		return -1, nil, false
	}

	idx := p.free[n-1]
	p.free = p.free[:n-1]
	p.inuse[idx] = true

	return idx, &p.slots[idx], true
}

// Release pushes index back onto the free stack. It returns an error on an
// out-of-range index or a double-release, per the debug-assertion contract
// the pool is specified against; neither case is enforced at the cost of
// extra bookkeeping beyond the inuse bitmap already needed for the check.
func (p *Pool[T]) Release(index int32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if index < 0 || int(index) >= len(p.slots) {
		return ErrorIndexOutOfRange.Error(nil)
	}
	if !p.inuse[index] {
		return ErrorDoubleRelease.Error(nil)
	}

	var zero T
	p.slots[index] = zero
	p.inuse[index] = false
	p.free = append(p.free, index)

	return nil
}

// Len returns the number of slots currently acquired.
func (p *Pool[T]) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.slots) - len(p.free)
}

// At returns a pointer to the slot at index without checking inuse, for
// callers that already hold a valid index handed out by Acquire.
func (p *Pool[T]) At(index int32) *T {
	return &p.slots[index]
}
