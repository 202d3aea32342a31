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

// Package manager owns the fixed-capacity object pool of Jobs shared by
// every Listener and Worker in the process. acquire/release are its only
// writers; everything else about a Job's lifecycle belongs to package job.
package manager

import (
	"github.com/nabbar/staticd/job"
	"github.com/nabbar/staticd/slab"
	"github.com/nabbar/staticd/transport"
)

// Manager hands out pooled *job.Job values from a pool whose capacity is
// fixed at New. The supervisor passes the configured maximum connection count
// shared by all listeners; no margin is added on top of it.
type Manager struct {
	pool *slab.Pool[job.Job]
}

// New allocates a Manager with room for capacity concurrent jobs, each
// carrying a read buffer of bufferSize bytes.
func New(capacity int, bufferSize int) (*Manager, error) {
	if capacity <= 0 {
		return nil, ErrorCapacityInvalid.Error(nil)
	}

	pool, err := slab.New[job.Job](capacity)
	if err != nil {
		return nil, err
	}

	for i := int32(0); i < int32(capacity); i++ {
		pool.At(i).ReadBuf = make([]byte, bufferSize)
	}

	return &Manager{pool: pool}, nil
}

// Cap returns the pool's fixed capacity.
func (m *Manager) Cap() int { return m.pool.Cap() }

// Len returns the number of jobs currently acquired.
func (m *Manager) Len() int { return m.pool.Len() }

// Acquire returns a ready-to-use *job.Job bound to conn, or ok=false when
// the pool is exhausted (the Listener's cue to shed-close instead).
func (m *Manager) Acquire(conn *transport.Connection, documentRoot, canonicalRoot string) (j *job.Job, index int32, ok bool) {
	idx, slot, acquired := m.pool.Acquire()
	if !acquired {
		return nil, -1, false
	}

	slot.Init(conn, documentRoot, canonicalRoot)
	return slot, idx, true
}

// Release tears the job down and returns its slot to the pool.
func (m *Manager) Release(index int32) error {
	j := m.pool.At(index)
	j.Release()

	buf := j.ReadBuf
	if err := m.pool.Release(index); err != nil {
		return ErrorDoubleRelease.Error(err)
	}

	// slab.Pool.Release zeroes the slot; the per-slot read buffer is the
	// one field that must survive across acquisitions to avoid a
	// per-connection allocation, so it is restored immediately after.
	m.pool.At(index).ReadBuf = buf
	return nil
}
