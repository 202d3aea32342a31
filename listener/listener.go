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

// Package listener owns one ServerEndpoint and one Poller watching exactly
// one descriptor: the listening socket. Every readable edge drains the
// accept queue, handing each connection to a Worker chosen by round-robin.
//
// The event-ports backend's mandatory per-event re-association is handled
// entirely inside that backend's own loop (see package poller); Listener
// never special-cases it, matching the portable contract every other
// backend already satisfies.
package listener

import (
	"github.com/nabbar/staticd/job"
	"github.com/nabbar/staticd/manager"
	"github.com/nabbar/staticd/metrics"
	"github.com/nabbar/staticd/poller"
	"github.com/nabbar/staticd/transport"
	"github.com/nabbar/staticd/worker"
)

// Listener accepts connections on one ServerEndpoint and round-robins them
// across a fixed set of Workers.
type Listener struct {
	endpoint      *transport.ServerEndpoint
	documentRoot  string
	canonicalRoot string
	manager       *manager.Manager
	workers       []*worker.Worker
	metrics       *metrics.Registry

	p      poller.Interface
	cursor int
}

// New constructs a Listener bound to endpoint, handing accepted connections
// to mgr and distributing them round-robin across workers. Files are served
// out of documentRoot (canonicalRoot is its realpath, resolved once at
// startup so the hot path never calls EvalSymlinks). At least one worker is
// required. metricsReg may be nil.
func New(endpoint *transport.ServerEndpoint, documentRoot, canonicalRoot string, mgr *manager.Manager, workers []*worker.Worker, metricsReg *metrics.Registry) (*Listener, error) {
	if len(workers) == 0 {
		return nil, ErrorNoWorkers.Error(nil)
	}

	l := &Listener{
		endpoint:      endpoint,
		documentRoot:  documentRoot,
		canonicalRoot: canonicalRoot,
		manager:       mgr,
		workers:       workers,
		metrics:       metricsReg,
	}

	p, err := poller.New(1, l.onEvent, nil)
	if err != nil {
		return nil, err
	}
	l.p = p

	return l, nil
}

// Setup prepares the server endpoint and the listener's poller.
func (l *Listener) Setup() error {
	if err := l.endpoint.Setup(); err != nil {
		return ErrorEndpointSetupFailed.Error(err)
	}
	return l.p.Setup()
}

// Run starts the poller loop and registers the server socket for READ.
func (l *Listener) Run() error {
	if err := l.p.Run(); err != nil {
		return err
	}
	if err := l.p.Add(l.endpoint.Fd(), poller.Read|poller.EdgeTriggered, nil); err != nil {
		return ErrorPollerAddFailed.Error(err)
	}
	return nil
}

// Stop closes the server socket; in-flight connections on Workers are left
// to drain independently.
func (l *Listener) Stop() {
	l.p.Stop()
	_ = l.endpoint.Close()
}

// Wait blocks until the listener's poller loop has exited.
func (l *Listener) Wait() {
	l.p.Wait()
}

// Cleanup releases the listener's poller resources.
func (l *Listener) Cleanup() error {
	return l.p.Cleanup()
}

func (l *Listener) onEvent(_ poller.Interface, code poller.Code, _ interface{}) {
	if !code.Has(poller.Read) {
		return
	}
	l.drainAccepts()
}

// drainAccepts loops accept() until would-block, per the edge-triggered
// discipline every backend requires.
func (l *Listener) drainAccepts() {
	for {
		conn, ok, err := l.endpoint.Accept()
		if err != nil || !ok {
			return
		}

		l.metrics.IncAccepted()

		j, idx, acquired := l.manager.Acquire(conn, l.documentRoot, l.canonicalRoot)
		if !acquired {
			// Manager exhausted: shed load by accepting then closing.
			_ = conn.Close()
			l.metrics.IncShedClosed()
			continue
		}

		if !l.assign(j, idx) {
			// Every worker saturated: shed this connection too.
			_ = l.manager.Release(idx)
			l.metrics.IncShedClosed()
		}
	}
}

// assign hands j to the next non-saturated Worker in round-robin order. The
// cursor advances past every Worker tried, whether or not it took j, and a
// saturated or refusing Worker is skipped in favour of the next one; false
// means no Worker took j.
func (l *Listener) assign(j *job.Job, index int32) bool {
	n := len(l.workers)
	for i := 0; i < n; i++ {
		w := l.workers[l.cursor]
		l.cursor = (l.cursor + 1) % n

		if w.Saturated() {
			continue
		}
		if err := w.Assign(j, index); err == nil {
			return true
		}
	}
	return false
}
