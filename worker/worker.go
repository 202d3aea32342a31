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

// Package worker owns one Poller and services many Jobs assigned to it by a
// Listener. Every transport/HTTP decision lives on job.Job; the Worker only
// dispatches poller events to it and realizes the interest-adjustment
// policy described for the READ/WRITE state machine.
package worker

import (
	"sync/atomic"

	atm "github.com/nabbar/staticd/atomic"
	"github.com/nabbar/staticd/job"
	"github.com/nabbar/staticd/manager"
	"github.com/nabbar/staticd/metrics"
	"github.com/nabbar/staticd/poller"
	"github.com/nabbar/staticd/transport"
)

// assignment is the opaque user pointer carried through the poller: a job
// plus the pool slot index the Manager needs back on release.
type assignment struct {
	job   *job.Job
	index int32
}

// Worker owns a Poller and a scratch buffer used for the buffered sendfile
// fallback. Capacity bounds how many Jobs it will accept via Assign.
type Worker struct {
	p       poller.Interface
	scratch []byte
	manager *manager.Manager
	metrics *metrics.Registry

	capacity int32
	count    atomic.Int32

	// lastErr is a lock-free snapshot of the most recent connection-ending
	// error this Worker observed, for supervisor-level health reporting. It
	// carries no behavioral weight: nothing reads it to make a dispatch
	// decision.
	lastErr atm.Value[error]
}

// New constructs a Worker able to serve capacity concurrent jobs.
func New(capacity int, bufferSize int, mgr *manager.Manager, metricsReg *metrics.Registry) (*Worker, error) {
	w := &Worker{
		scratch:  make([]byte, bufferSize),
		manager:  mgr,
		metrics:  metricsReg,
		capacity: int32(capacity),
		lastErr:  atm.NewValue[error](),
	}

	p, err := poller.New(capacity, w.onEvent, nil)
	if err != nil {
		return nil, err
	}
	w.p = p

	return w, nil
}

func (w *Worker) Setup() error   { return w.p.Setup() }
func (w *Worker) Run() error     { return w.p.Run() }
func (w *Worker) Stop()          { w.p.Stop() }
func (w *Worker) Wait()          { w.p.Wait() }
func (w *Worker) Cleanup() error { return w.p.Cleanup() }

// Saturated reports whether Assign would be refused right now.
func (w *Worker) Saturated() bool {
	return w.count.Load() >= w.capacity
}

// LastError returns the most recent connection-ending error this Worker
// observed from its poller, or nil if none has occurred yet.
func (w *Worker) LastError() error {
	return w.lastErr.Load()
}

// Assign registers j (already bound to an accepted Connection) with this
// Worker's poller for READ|EDGE_TRIGGERED. index is the Manager pool slot j
// occupies, handed back on release.
func (w *Worker) Assign(j *job.Job, index int32) error {
	if w.Saturated() {
		return ErrorSaturated.Error(nil)
	}

	a := &assignment{job: j, index: index}
	if err := w.p.Add(j.Conn.Fd(), poller.Read|poller.EdgeTriggered, a); err != nil {
		return ErrorAssignFailed.Error(err)
	}

	w.count.Add(1)
	return nil
}

func (w *Worker) onEvent(p poller.Interface, code poller.Code, userPtr interface{}) {
	a, ok := userPtr.(*assignment)
	if !ok || a == nil {
		return
	}

	if code.Has(poller.Close) || code.Has(poller.Error) {
		w.finishWithError(p, a, ErrorConnectionReleased.Error(nil))
		return
	}

	if code.Has(poller.Write) {
		w.doWrite(p, a)
		return
	}

	if code.Has(poller.Read) {
		w.doRead(p, a)
	}
}

func (w *Worker) doRead(p poller.Interface, a *assignment) {
	j := a.job

	if !j.Conn.TLSEstablished() {
		state, err := j.Conn.EstablishTLS(w.metrics)
		if err != nil {
			w.finishWithError(p, a, err)
			return
		}
		if state == transport.HandshakeInProgress {
			return
		}
	}

	switch j.Read() {
	case job.ReadRelease:
		w.finishWithError(p, a, ErrorConnectionReleased.Error(nil))
	case job.ReadWantMore:
		// Edge-triggered: already drained to would-block, keep waiting.
	case job.ReadReadyWrite:
		// Piggyback: attempt the write immediately instead of waiting for
		// the next WRITE-readiness edge.
		w.doWrite(p, a)
	}
}

func (w *Worker) doWrite(p poller.Interface, a *assignment) {
	j := a.job

	switch j.Write(w.scratch, w.metrics) {
	case job.WriteRelease:
		w.finishWithError(p, a, ErrorConnectionReleased.Error(nil))
	case job.WriteWantMore:
		w.adjustInterest(p, a, true)
	case job.WriteDone:
		if j.ShouldCloseAfterWrite() {
			w.finish(p, a)
			return
		}
		w.adjustInterest(p, a, false)
	}
}

// adjustInterest realizes the invariant: WRITE interest is held iff
// job.HasMoreWrite is true. Each backend's Modify implementation already
// knows whether that means modify-in-place, add/remove a filter, or
// re-associate, so the Worker only ever calls the portable Modify.
func (w *Worker) adjustInterest(p poller.Interface, a *assignment, wantWrite bool) {
	mask := poller.Read | poller.EdgeTriggered
	if wantWrite {
		mask |= poller.Write
	}
	_ = p.Modify(a.job.Conn.Fd(), mask, a)
}

// finish tears down one connection after a graceful close (keep-alive
// disabled, response fully sent).
func (w *Worker) finish(p poller.Interface, a *assignment) {
	_ = p.Remove(a.job.Conn.Fd(), poller.Read|poller.Write)
	_ = w.manager.Release(a.index)
	w.count.Add(-1)
}

// finishWithError tears down one connection after a poller-reported
// close/error edge or a transport failure surfaced through job.Read/
// job.Write, recording the health snapshot Worker.LastError reports.
func (w *Worker) finishWithError(p poller.Interface, a *assignment, err error) {
	w.lastErr.Store(err)
	w.finish(p, a)
}
