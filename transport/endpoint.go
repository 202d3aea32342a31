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

// Package transport wraps a non-blocking stream socket with optional TLS,
// the way the raw-syscall reference servers in this codebase's lineage set
// up epoll-driven listeners: sockets are created and manipulated directly
// through golang.org/x/sys/unix rather than through net.Listen, so every
// accepted descriptor can be registered with a poller.Interface immediately
// without the standard runtime netpoller getting in the way.
package transport

import (
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nabbar/staticd/tlsconfig"
)

// Family selects the address family a ServerEndpoint binds.
type Family uint8

const (
	FamilyV4 Family = iota
	FamilyV6
)

// ServerEndpoint is immutable after Setup. It owns the listening socket for
// the lifetime of the process.
type ServerEndpoint struct {
	Family  Family
	Address string
	Port    uint16
	Backlog int
	TLS     *tlsconfig.Config

	// RecvTimeout and SendTimeout become SO_RCVTIMEO/SO_SNDTIMEO on every
	// connection accepted through this endpoint. Zero leaves the kernel
	// default (no timeout) in place.
	RecvTimeout time.Duration
	SendTimeout time.Duration

	fd int
}

// Fd returns the listening socket descriptor, valid after Setup.
func (s *ServerEndpoint) Fd() int { return s.fd }

// Setup creates, binds and listens on the endpoint's socket, non-blocking
// and close-on-exec, with SO_REUSEADDR set before bind.
func (s *ServerEndpoint) Setup() error {
	domain := unix.AF_INET
	if s.Family == FamilyV6 {
		domain = unix.AF_INET6
	}

	fd, err := unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return ErrorSocketSetup.Error(err)
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return ErrorSocketSetup.Error(err)
	}

	if s.Family == FamilyV6 {
		_ = unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1)
	}

	_ = setTCPFastOpen(fd, 256)

	if err = bindAddress(fd, s.Family, s.Address, s.Port); err != nil {
		_ = unix.Close(fd)
		return ErrorBindFailed.Error(err)
	}

	backlog := s.Backlog
	if backlog <= 0 {
		backlog = 1024
	}
	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return ErrorListenFailed.Error(err)
	}

	s.fd = fd
	return nil
}

func bindAddress(fd int, family Family, address string, port uint16) error {
	ip := net.ParseIP(address)

	if family == FamilyV6 {
		var addr [16]byte
		if ip != nil {
			copy(addr[:], ip.To16())
		}
		return unix.Bind(fd, &unix.SockaddrInet6{Port: int(port), Addr: addr})
	}

	var addr [4]byte
	if ip != nil {
		copy(addr[:], ip.To4())
	}
	return unix.Bind(fd, &unix.SockaddrInet4{Port: int(port), Addr: addr})
}

// Close releases the listening socket.
func (s *ServerEndpoint) Close() error {
	if s.fd <= 0 {
		return nil
	}
	return unix.Close(s.fd)
}

// Accept performs one non-blocking accept, returning (nil, false, nil) on
// would-block (distinct from error) per the accept-loop contract.
func (s *ServerEndpoint) Accept() (conn *Connection, ok bool, err error) {
	nfd, _, aerr := unix.Accept4(s.fd, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
	if aerr != nil {
		if aerr == unix.EAGAIN || aerr == unix.EWOULDBLOCK {
			return nil, false, nil
		}
		return nil, false, ErrorAcceptFailed.Error(aerr)
	}

	applyConnectionSocketOptions(nfd, s.RecvTimeout, s.SendTimeout)

	return &Connection{fd: nfd, endpoint: s}, true, nil
}
