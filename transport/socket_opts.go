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
	"time"

	"golang.org/x/sys/unix"
)

// applyConnectionSocketOptions sets the per-connection options the spec
// calls for: TCP_NODELAY to avoid Nagle delay on small HTTP responses,
// SO_KEEPALIVE so dead peers are eventually reaped, SO_LINGER{on,0} so
// Close forces an RST instead of lingering in TIME_WAIT, and the
// configurable SO_RCVTIMEO/SO_SNDTIMEO the spec calls for so a stalled
// peer cannot pin a Job's socket open forever. A zero duration leaves the
// corresponding kernel timeout unset (block indefinitely).
func applyConnectionSocketOptions(fd int, recvTimeout, sendTimeout time.Duration) {
	_ = unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
	_ = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
	_ = unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, &unix.Linger{Onoff: 1, Linger: 0})

	if recvTimeout > 0 {
		_ = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, durationToTimeval(recvTimeout))
	}
	if sendTimeout > 0 {
		_ = unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, durationToTimeval(sendTimeout))
	}
}

func durationToTimeval(d time.Duration) *unix.Timeval {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	return &tv
}

// setTCPFastOpen enables TCP Fast Open on a listening socket where the
// platform supports it; failure is not fatal, fast open is an optimization.
func setTCPFastOpen(fd int, queueLen int) error {
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_FASTOPEN, queueLen)
}
