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

//go:build !windows

package transport

import (
	"crypto/tls"
	"net"
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/nabbar/staticd/metrics"
)

// HandshakeState reports the outcome of one EstablishTLS call.
type HandshakeState uint8

const (
	HandshakeNotNeeded HandshakeState = iota
	HandshakeInProgress
	HandshakeEstablished
	HandshakeFailed
)

// Connection is one accepted socket. It exclusively owns fd; it only holds
// a back-reference to the ServerEndpoint that produced it.
type Connection struct {
	fd       int
	endpoint *ServerEndpoint
	peer     unix.Sockaddr

	established atomic.Bool

	tlsConn    *tls.Conn
	tlsFile    *os.File
	tlsDone    chan struct{}
	tlsErr     error
	tlsStarted bool

	sentFile int64
}

// Fd returns the raw socket descriptor.
func (c *Connection) Fd() int { return c.fd }

// TLSEstablished reports whether the TLS session (if any) has completed its
// handshake. Callers must not Receive or Send before this is true when the
// endpoint requires TLS.
func (c *Connection) TLSEstablished() bool { return c.established.Load() }

// EstablishTLS drives the handshake. Returns HandshakeNotNeeded immediately
// when the endpoint carries no TLS configuration.
//
// crypto/tls exposes no WANT_READ/WANT_WRITE suspension point the way
// OpenSSL's BIO layer does, so the handshake itself runs on a dedicated
// goroutine wrapping the raw descriptor in a net.Conn; this call only polls
// that goroutine's completion channel. The worker treats HandshakeInProgress
// like a would-block and revisits on the next readiness event.
func (c *Connection) EstablishTLS(metricsReg *metrics.Registry) (HandshakeState, error) {
	if c.endpoint.TLS == nil || !c.endpoint.TLS.Enabled() {
		c.established.Store(true)
		return HandshakeNotNeeded, nil
	}

	if !c.tlsStarted {
		cfg, err := c.endpoint.TLS.Build()
		if err != nil {
			return HandshakeFailed, err
		}

		f := os.NewFile(uintptr(c.fd), "conn")
		nc, err := net.FileConn(f)
		if err != nil {
			_ = f.Close()
			return HandshakeFailed, ErrorHandshakeFailed.Error(err)
		}

		// net.FileConn dups fd into nc; f still owns the original
		// descriptor and must be closed alongside tlsConn in Close, or its
		// finalizer would close c.fd out from under the live connection.
		c.tlsFile = f
		c.tlsConn = tls.Server(nc, cfg)
		c.tlsDone = make(chan struct{})
		c.tlsStarted = true

		go func() {
			c.tlsErr = c.tlsConn.Handshake()
			close(c.tlsDone)
		}()
	}

	select {
	case <-c.tlsDone:
		if c.tlsErr != nil {
			return HandshakeFailed, ErrorHandshakeFailed.Error(c.tlsErr)
		}
		c.established.Store(true)
		if metricsReg != nil && ktlsSupported(c.fd) {
			metricsReg.IncKTLSSendfile()
		}
		return HandshakeEstablished, nil
	default:
		return HandshakeInProgress, nil
	}
}

// Receive drains the socket into buf, looping until would-block. Returns the
// number of bytes read and whether the peer closed the connection (a
// zero-byte plain read with no error).
func (c *Connection) Receive(buf []byte) (n int, peerClosed bool, err error) {
	if c.tlsConn != nil {
		return c.receiveTLS(buf)
	}

	total := 0
	for total < len(buf) {
		m, rerr := unix.Read(c.fd, buf[total:])
		if rerr != nil {
			if rerr == unix.EAGAIN || rerr == unix.EWOULDBLOCK {
				break
			}
			return total, false, ErrorReceiveFailed.Error(rerr)
		}
		if m == 0 {
			return total, true, nil
		}
		total += m
	}

	return total, false, nil
}

func (c *Connection) receiveTLS(buf []byte) (int, bool, error) {
	n, err := c.tlsConn.Read(buf)
	if err != nil {
		if n > 0 {
			return n, false, nil
		}
		return 0, true, nil
	}
	return n, false, nil
}

// Send writes buf, looping until would-block or fully drained. Returns the
// number of bytes written; callers re-enter with the same buffer on partial
// sends.
func (c *Connection) Send(buf []byte) (n int, err error) {
	if c.tlsConn != nil {
		m, werr := c.tlsConn.Write(buf)
		if werr != nil {
			return m, ErrorSendFailed.Error(werr)
		}
		return m, nil
	}

	total := 0
	for total < len(buf) {
		m, werr := unix.Write(c.fd, buf[total:])
		if werr != nil {
			if werr == unix.EAGAIN || werr == unix.EWOULDBLOCK {
				break
			}
			return total, ErrorSendFailed.Error(werr)
		}
		total += m
	}

	return total, nil
}

// Close issues a TLS close-notify when established, shuts the write half,
// best-effort drains trailing bytes, then closes the descriptor.
func (c *Connection) Close() error {
	if c.tlsConn != nil {
		// Sends close-notify once the handshake has completed and closes the
		// duplicate descriptor made by net.FileConn; c.fd stays open below.
		_ = c.tlsConn.Close()
	}

	_ = unix.Shutdown(c.fd, unix.SHUT_WR)

	scratch := make([]byte, 512)
	for i := 0; i < 16; i++ {
		n, err := unix.Read(c.fd, scratch)
		if err != nil || n <= 0 {
			break
		}
	}

	if c.tlsFile != nil {
		return c.tlsFile.Close()
	}
	return unix.Close(c.fd)
}
