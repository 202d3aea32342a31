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

// Package errors provides a typed error with a numeric CodeError
// classification, parent-error chaining and an Unwrap slice compatible
// with the standard errors.Is/errors.As machinery.
//
// Every package that can fail declares its own error.go with a
// `const ( ErrorXxx CodeError = iota + MinPkgXxx )` block and registers a
// message function via RegisterIdFctMessage in its init().
package errors

import (
	"runtime"
)

// Error extends the standard error with a numeric code and parent chain.
type Error interface {
	error

	IsCode(code CodeError) bool
	HasCode(code CodeError) bool
	GetCode() CodeError

	Is(e error) bool
	Add(parent ...error)
	HasParent() bool
	GetParent() []error
	Unwrap() []error

	GetTrace() string
}

type ers struct {
	c CodeError
	e string
	p []error
	t runtime.Frame
}

func (e *ers) GetCode() CodeError {
	return e.c
}

func (e *ers) IsCode(code CodeError) bool {
	return e.c == code
}

func (e *ers) HasCode(code CodeError) bool {
	if e.IsCode(code) {
		return true
	}

	for _, p := range e.p {
		if pe, ok := p.(Error); ok && pe.HasCode(code) {
			return true
		}
	}

	return false
}

func (e *ers) Error() string {
	if e.c == UnknownError {
		return e.e
	}

	return e.c.String() + ": " + e.e
}

func (e *ers) Is(err error) bool {
	if err == nil {
		return false
	}

	if oe, ok := err.(*ers); ok {
		return oe.c == e.c && oe.e == e.e
	}

	return e.e == err.Error()
}

func (e *ers) Add(parent ...error) {
	for _, p := range parent {
		if p != nil {
			e.p = append(e.p, p)
		}
	}
}

func (e *ers) HasParent() bool {
	return len(e.p) > 0
}

func (e *ers) GetParent() []error {
	return e.p
}

func (e *ers) Unwrap() []error {
	return e.p
}

func (e *ers) GetTrace() string {
	if e.t.File == "" {
		return ""
	}

	return e.t.Function
}

func trace() runtime.Frame {
	var frame runtime.Frame

	if pc, file, line, ok := runtime.Caller(2); ok {
		frame.PC = pc
		frame.File = file
		frame.Line = line
		if fn := runtime.FuncForPC(pc); fn != nil {
			frame.Function = fn.Name()
		}
	}

	return frame
}
