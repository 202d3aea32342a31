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
	"golang.org/x/sys/unix"
)

// ktlsSupported best-effort probes whether the kernel accepted a TLS ULP on
// fd's TCP socket (Linux-only; SOL_TLS is undefined on every other unix this
// package targets, where the probe simply fails closed).
func ktlsSupported(fd int) bool {
	return setTLSULP(fd) == nil
}

// SendFile transmits count bytes of src starting at offset to the
// connection, picking the cheapest available path: kernel sendfile when no
// user-space TLS framing is in the way, otherwise a buffered
// lseek/read/send loop through the TLS session. Preserves *sent across
// partial transfers — callers re-enter with the same offset/count pair
// advanced by the previous return value.
func (c *Connection) SendFile(srcFd int, offset int64, count int64, scratch []byte) (sent int64, err error) {
	if c.tlsConn == nil {
		return c.sendFileKernel(srcFd, offset, count)
	}

	return c.sendFileBuffered(srcFd, offset, count, scratch)
}

func (c *Connection) sendFileKernel(srcFd int, offset int64, count int64) (int64, error) {
	off := offset
	remaining := count
	var total int64

	for remaining > 0 {
		n, err := unix.Sendfile(c.fd, srcFd, &off, int(remaining))
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return total, nil
			}
			return total, ErrorSendFileFailed.Error(err)
		}
		if n == 0 {
			break
		}
		total += int64(n)
		remaining -= int64(n)
	}

	return total, nil
}

func (c *Connection) sendFileBuffered(srcFd int, offset int64, count int64, scratch []byte) (int64, error) {
	if len(scratch) == 0 {
		scratch = make([]byte, 64*1024)
	}

	if _, err := unix.Seek(srcFd, offset, 0); err != nil {
		return 0, ErrorSendFileFailed.Error(err)
	}

	var total int64
	for total < count {
		want := int64(len(scratch))
		if remain := count - total; remain < want {
			want = remain
		}

		n, rerr := unix.Read(srcFd, scratch[:want])
		if rerr != nil {
			return total, ErrorSendFileFailed.Error(rerr)
		}
		if n == 0 {
			break
		}

		m, werr := c.Send(scratch[:n])
		total += int64(m)
		if werr != nil {
			return total, werr
		}
		if m < n {
			// Partial send: would-block mid-chunk, rewind the file cursor
			// so the next call re-reads the unsent tail.
			_, _ = unix.Seek(srcFd, offset+total, 0)
			break
		}
	}

	return total, nil
}

// setTLSULP attempts to attach the Linux "tls" upper-layer protocol to fd.
// It installs no TLS_TX/TLS_RX crypto state, so no record offload is set
// up; the result only shows whether the kernel build supports the ULP. It
// feeds the KTLSSendfile counter and nothing else: SendFile has no kernel TLS
// path and always sends TLS file bodies through the buffered loop.
func setTLSULP(fd int) error {
	return unix.SetsockoptString(fd, unix.IPPROTO_TCP, unix.TCP_ULP, "tls")
}
