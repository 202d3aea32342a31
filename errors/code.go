/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package errors

import (
	"sort"
	"strconv"
)

// idMsgFct maps the lowest code of a registered package block to the
// message function for that block; CodeError.Message resolves any code
// in the block via the nearest-below key.
var idMsgFct = make(map[CodeError]Message)

// Message generates the human-readable message for a registered CodeError.
type Message func(code CodeError) (message string)

// CodeError is a numeric error classification, analogous to an HTTP status
// code but scoped per-package (see modules.go).
type CodeError uint16

const (
	UnknownError   CodeError = 0
	UnknownMessage           = "unknown error"
	NullMessage              = ""
)

func (c CodeError) Uint16() uint16 {
	return uint16(c)
}

func (c CodeError) String() string {
	return strconv.Itoa(int(c))
}

// Message resolves the message registered for c's package block, falling
// back to UnknownMessage when nothing is registered.
func (c CodeError) Message() string {
	if c == UnknownError {
		return UnknownMessage
	}

	if f, ok := idMsgFct[findBlock(c)]; ok {
		if m := f(c); m != NullMessage {
			return m
		}
	}

	return UnknownMessage
}

// Error builds a new Error value carrying this code, its registered
// message, and the given parent errors.
func (c CodeError) Error(parent ...error) Error {
	return New(c, c.Message(), parent...)
}

// IfError builds a new Error value carrying this code only if at least one
// non-nil error is present in e; otherwise returns nil.
func (c CodeError) IfError(e ...error) Error {
	return IfError(c, c.Message(), e...)
}

// RegisterIdFctMessage registers the message function for the package block
// starting at minCode. Called once from each package's error.go init().
func RegisterIdFctMessage(minCode CodeError, fct Message) {
	idMsgFct[minCode] = fct
}

// ExistInMapMessage reports whether a message is registered for code.
func ExistInMapMessage(code CodeError) bool {
	f, ok := idMsgFct[findBlock(code)]
	return ok && f(code) != NullMessage
}

func findBlock(code CodeError) CodeError {
	var (
		keys []int
		best CodeError
	)

	for k := range idMsgFct {
		keys = append(keys, int(k))
	}
	sort.Ints(keys)

	for _, k := range keys {
		if CodeError(k) <= code {
			best = CodeError(k)
		}
	}

	return best
}
