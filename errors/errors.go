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

import "fmt"

// New builds an Error carrying code and msg, with the given parents attached
// and a trace captured at the caller of New.
func New(code CodeError, msg string, parent ...error) Error {
	e := &ers{
		c: code,
		e: msg,
		t: trace(),
	}
	e.Add(parent...)

	return e
}

// Newf builds an Error like New, formatting msg with args via fmt.Sprintf.
func Newf(code CodeError, msg string, args ...interface{}) Error {
	return New(code, fmt.Sprintf(msg, args...))
}

// IfError returns nil when every entry in e is nil, otherwise a new Error
// carrying code and msg with every non-nil entry of e attached as parent.
func IfError(code CodeError, msg string, e ...error) Error {
	var hasErr bool

	for _, v := range e {
		if v != nil {
			hasErr = true
			break
		}
	}

	if !hasErr {
		return nil
	}

	out := &ers{
		c: code,
		e: msg,
		t: trace(),
	}
	out.Add(e...)

	return out
}
