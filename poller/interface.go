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

// Package poller exposes one readiness-notification interface implemented
// once per backend (epoll on Linux, kqueue on the BSDs and darwin, Solaris/
// illumos event ports, and a poll(2) fallback keyed through package fdmap
// everywhere else), selected entirely at compile time via build tags. The
// Worker and Listener program against Interface only; they never branch on
// which backend is active — the re-arm and interest-adjustment differences
// between backends are private to each backend: its Add/Modify, and for event
// ports and the poll fallback also its event loop, which re-associates fd or
// masks out the fired directions after each delivery.
package poller

import "sync"

// Code is a bitset over the readiness conditions a caller can request (READ,
// WRITE, EDGE_TRIGGERED) or receive (READ, WRITE, ERROR, CLOSE).
type Code uint8

const (
	Read Code = 1 << iota
	Write
	Error
	Close
	EdgeTriggered
)

func (c Code) Has(bit Code) bool {
	return c&bit != 0
}

// EventFunc is invoked on the poller's own goroutine for every readiness
// record. code is the union of fired conditions for userPtr's descriptor.
// Implementations must not block and must not call Wait on the same
// poller from within the callback.
type EventFunc func(p Interface, code Code, userPtr interface{})

// StopFunc is invoked exactly once when the poller's loop goroutine exits,
// whether or not it ever started serving events.
type StopFunc func()

// Interface is the portable surface every backend implements. A nil
// *interface value is never returned by a constructor; construction failure
// is always reported as an error instead.
type Interface interface {
	// Setup prepares backend resources. Must be called once before Run.
	Setup() error

	// Run spawns the poller's event loop goroutine and returns immediately.
	Run() error

	// Wait blocks until the event loop goroutine has exited.
	Wait()

	// Stop requests cancellation of the event loop. Cooperative: the loop
	// observes the request before its next blocking wait and may still
	// deliver already-queued events first.
	Stop()

	// Add registers fd for the conditions in mask (a combination of Read,
	// Write, EdgeTriggered — never Error/Close, which are always delivered)
	// with an opaque user pointer returned on every event for fd.
	Add(fd int, mask Code, userPtr interface{}) error

	// Modify replaces the registered interest mask for fd.
	Modify(fd int, mask Code, userPtr interface{}) error

	// Remove deregisters fd. mask is advisory for backends (kqueue) where
	// READ and WRITE are independent filters that must each be removed.
	Remove(fd int, mask Code) error

	// Cleanup releases backend resources. Safe to call after Wait returns.
	Cleanup() error
}

// base holds the state common to every backend: the user callbacks, the
// cancellation flag, and the goroutine-exit signal. Backends embed base and
// implement the platform-specific Setup/Run/Add/Modify/Remove/Cleanup.
type base struct {
	onEvent EventFunc
	onStop  StopFunc
	cancel  sync.Once
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func newBase(onEvent EventFunc, onStop StopFunc) base {
	return base{
		onEvent: onEvent,
		onStop:  onStop,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

func (b *base) requestStop() {
	b.cancel.Do(func() { close(b.stopCh) })
}

func (b *base) stopped() bool {
	select {
	case <-b.stopCh:
		return true
	default:
		return false
	}
}

func (b *base) finish() {
	if b.onStop != nil {
		b.onStop()
	}
	close(b.doneCh)
}

func (b *base) wait() {
	<-b.doneCh
}
