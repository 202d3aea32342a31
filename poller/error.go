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

package poller

import "github.com/nabbar/staticd/errors"

const (
	ErrorCapacityInvalid errors.CodeError = iota + errors.MinPkgPoller
	ErrorCapacityExceeded
	ErrorBackendSetup
	ErrorBackendAdd
	ErrorBackendModify
	ErrorBackendRemove
	ErrorNotFound
	ErrorAlreadyRunning
)

func init() {
	errors.RegisterIdFctMessage(errors.MinPkgPoller, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorCapacityInvalid:
		return "poller: capacity must be greater than zero"
	case ErrorCapacityExceeded:
		return "poller: descriptor capacity exceeded"
	case ErrorBackendSetup:
		return "poller: backend setup failed"
	case ErrorBackendAdd:
		return "poller: backend add failed"
	case ErrorBackendModify:
		return "poller: backend modify failed"
	case ErrorBackendRemove:
		return "poller: backend remove failed"
	case ErrorNotFound:
		return "poller: descriptor not registered"
	case ErrorAlreadyRunning:
		return "poller: already running"
	}

	return errors.NullMessage
}
