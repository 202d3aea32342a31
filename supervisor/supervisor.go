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

// Package supervisor boots the configuration into a running process: it
// constructs the Manager, the Workers, and one Listener per bound address/
// port pair, then owns graceful shutdown. It is the only component that
// knows about signals.
package supervisor

import (
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/nabbar/staticd/config"
	"github.com/nabbar/staticd/listener"
	"github.com/nabbar/staticd/logging"
	"github.com/nabbar/staticd/manager"
	"github.com/nabbar/staticd/metrics"
	"github.com/nabbar/staticd/tlsconfig"
	"github.com/nabbar/staticd/transport"
	"github.com/nabbar/staticd/worker"
)

// Supervisor exclusively owns the Listeners, Workers, Manager, and
// Configuration for one process lifetime.
type Supervisor struct {
	cfg     *config.Config
	log     logging.Logger
	metrics *metrics.Registry

	mgr       *manager.Manager
	workers   []*worker.Worker
	listeners []*listener.Listener

	running atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
}

// New validates cfg and wires the Manager and Workers, but does not yet
// bind any sockets — that happens in Run.
func New(cfg *config.Config, log logging.Logger, metricsReg *metrics.Registry) (*Supervisor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(cfg.DocumentRoot)
	if err != nil || !info.IsDir() {
		return nil, ErrorDocumentRootInvalid.Error(err)
	}

	mgr, err := manager.New(cfg.MaxConnections, cfg.BufferBytes)
	if err != nil {
		return nil, ErrorManagerSetup.Error(err)
	}

	s := &Supervisor{
		cfg:     cfg,
		log:     log,
		metrics: metricsReg,
		mgr:     mgr,
		stopCh:  make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		w, werr := worker.New(cfg.MaxConnections, cfg.BufferBytes, mgr, metricsReg)
		if werr != nil {
			return nil, ErrorWorkerSetup.Error(werr)
		}
		s.workers = append(s.workers, w)
	}

	canonicalRoot, err := filepath.EvalSymlinks(cfg.DocumentRoot)
	if err != nil {
		return nil, ErrorDocumentRootInvalid.Error(err)
	}

	endpoints, err := buildEndpoints(cfg)
	if err != nil {
		return nil, err
	}

	for _, ep := range endpoints {
		l, lerr := listener.New(ep, cfg.DocumentRoot, canonicalRoot, mgr, s.workers, metricsReg)
		if lerr != nil {
			return nil, ErrorListenerSetup.Error(lerr)
		}
		s.listeners = append(s.listeners, l)
	}

	return s, nil
}

// buildEndpoints turns the flat Config into one ServerEndpoint per bound
// address/port pair: always IPv4 HTTP, optionally IPv6 HTTP (enable-ipv6),
// and the same shape again for HTTPS when enable-tls is set.
func buildEndpoints(cfg *config.Config) ([]*transport.ServerEndpoint, error) {
	var tlsCfg *tlsconfig.Config
	if cfg.EnableTLS {
		tlsCfg = &tlsconfig.Config{
			Pair: &tlsconfig.Pair{Cert: cfg.TLSCertPath, Key: cfg.TLSKeyPath},
		}
		if _, err := tlsCfg.Build(); err != nil {
			return nil, err
		}
	}

	backlog := cfg.MaxConnections
	if backlog <= 0 {
		backlog = 1024
	}

	recvTimeout := cfg.ReceiveTimeout.Time()
	sendTimeout := cfg.SendTimeout.Time()

	eps := []*transport.ServerEndpoint{
		{Family: transport.FamilyV4, Address: cfg.IPv4Bind, Port: cfg.HTTPPort, Backlog: backlog, RecvTimeout: recvTimeout, SendTimeout: sendTimeout},
	}
	if cfg.EnableIPv6 {
		eps = append(eps, &transport.ServerEndpoint{Family: transport.FamilyV6, Address: cfg.IPv6Bind, Port: cfg.HTTPPort, Backlog: backlog, RecvTimeout: recvTimeout, SendTimeout: sendTimeout})
	}

	if cfg.EnableTLS {
		eps = append(eps, &transport.ServerEndpoint{Family: transport.FamilyV4, Address: cfg.IPv4Bind, Port: cfg.HTTPSPort, Backlog: backlog, TLS: tlsCfg, RecvTimeout: recvTimeout, SendTimeout: sendTimeout})
		if cfg.EnableIPv6 {
			eps = append(eps, &transport.ServerEndpoint{Family: transport.FamilyV6, Address: cfg.IPv6Bind, Port: cfg.HTTPSPort, Backlog: backlog, TLS: tlsCfg, RecvTimeout: recvTimeout, SendTimeout: sendTimeout})
		}
	}

	return eps, nil
}

// Run sets up every Worker and Listener, starts them, and blocks until
// SIGINT (or a call to Stop) triggers graceful shutdown. SIGPIPE is ignored
// for the process lifetime so a client aborting mid-write never kills the
// supervisor.
func (s *Supervisor) Run() error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrorAlreadyRunning.Error(nil)
	}

	signal.Ignore(syscall.SIGPIPE)

	for _, w := range s.workers {
		if err := w.Setup(); err != nil {
			return err
		}
	}
	for _, l := range s.listeners {
		if err := l.Setup(); err != nil {
			return err
		}
	}

	for _, w := range s.workers {
		if err := w.Run(); err != nil {
			return err
		}
	}
	for _, l := range s.listeners {
		if err := l.Run(); err != nil {
			return err
		}
	}

	s.log.Info("supervisor started: %d worker(s), %d listener(s)", len(s.workers), len(s.listeners))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
		s.log.Info("received SIGINT, shutting down")
	case <-s.stopCh:
		s.log.Info("stop requested, shutting down")
	}

	return s.shutdown()
}

// Stop requests shutdown from outside the signal path (tests, embedders).
// It is safe to call before Run has reached its wait point or more than
// once; only the first call has any effect.
func (s *Supervisor) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
}

// shutdown follows the documented order: stop every Listener and join it,
// then stop every Worker and join it. In-flight responses on Workers during
// their stop are abandoned; there is no response-level timeout beyond the
// socket-level send/receive timeout.
func (s *Supervisor) shutdown() error {
	var eg errgroup.Group

	for _, l := range s.listeners {
		l.Stop()
	}
	for _, l := range s.listeners {
		l := l
		eg.Go(func() error {
			l.Wait()
			return l.Cleanup()
		})
	}
	if err := eg.Wait(); err != nil {
		s.log.Error("listener shutdown error", err)
	}

	var wg errgroup.Group
	for _, w := range s.workers {
		w.Stop()
	}
	for _, w := range s.workers {
		w := w
		wg.Go(func() error {
			w.Wait()
			return w.Cleanup()
		})
	}
	if err := wg.Wait(); err != nil {
		s.log.Error("worker shutdown error", err)
		return err
	}

	s.log.Info("supervisor stopped cleanly")
	return nil
}
