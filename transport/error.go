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

package transport

import "github.com/nabbar/staticd/errors"

const (
	ErrorSocketSetup errors.CodeError = iota + errors.MinPkgTransport
	ErrorBindFailed
	ErrorListenFailed
	ErrorAcceptFailed
	ErrorHandshakeFailed
	ErrorReceiveFailed
	ErrorSendFailed
	ErrorSendFileFailed
	ErrorNotEstablished
)

func init() {
	errors.RegisterIdFctMessage(errors.MinPkgTransport, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorSocketSetup:
		return "transport: socket setup failed"
	case ErrorBindFailed:
		return "transport: bind failed"
	case ErrorListenFailed:
		return "transport: listen failed"
	case ErrorAcceptFailed:
		return "transport: accept failed"
	case ErrorHandshakeFailed:
		return "transport: tls handshake failed"
	case ErrorReceiveFailed:
		return "transport: receive failed"
	case ErrorSendFailed:
		return "transport: send failed"
	case ErrorSendFileFailed:
		return "transport: sendfile failed"
	case ErrorNotEstablished:
		return "transport: tls session not established"
	}

	return errors.NullMessage
}
