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

// Package httpengine implements the zero-copy HTTP/1.1 request parser, the
// traversal-safe path resolver, and the response builder. The parser never
// allocates: every field it produces is a slice into the caller's own
// buffer, valid only until that buffer is reused by the next read.
package httpengine

import "github.com/nabbar/staticd/errors"

// MaxHeaders bounds the number of headers retained per request; additional
// headers are scanned (so the parser stays in sync) but not stored.
const MaxHeaders = 128

// Header is one "Name: Value" pair as slices into the request buffer.
type Header struct {
	Name  []byte
	Value []byte
}

// Request is a parsed HTTP/1.1 request line plus headers. The zero value is
// ready to use and may be reused across parses via Reset.
type Request struct {
	Method  []byte
	Target  []byte
	Version []byte
	Headers [MaxHeaders]Header
	NumHdr  int
	Body    []byte
}

// Reset clears a Request for reuse against a new buffer, without
// reallocating the Headers array.
func (r *Request) Reset() {
	r.Method = nil
	r.Target = nil
	r.Version = nil
	r.NumHdr = 0
	r.Body = nil
}

// Header looks up the first stored header matching name case-sensitively
// scanned from the wire; HTTP header names are conventionally cased by the
// client but RFC 7230 calls for case-insensitive matching, so callers
// wanting a specific header should use HeaderFold instead.
func (r *Request) Header(name string) ([]byte, bool) {
	for i := 0; i < r.NumHdr; i++ {
		if string(r.Headers[i].Name) == name {
			return r.Headers[i].Value, true
		}
	}
	return nil, false
}

// HeaderFold is Header with ASCII case-insensitive name matching.
func (r *Request) HeaderFold(name string) ([]byte, bool) {
	for i := 0; i < r.NumHdr; i++ {
		if equalFold(r.Headers[i].Name, name) {
			return r.Headers[i].Value, true
		}
	}
	return nil, false
}

func equalFold(b []byte, s string) bool {
	if len(b) != len(s) {
		return false
	}
	for i := 0; i < len(b); i++ {
		c1, c2 := b[i], s[i]
		if 'A' <= c1 && c1 <= 'Z' {
			c1 += 'a' - 'A'
		}
		if 'A' <= c2 && c2 <= 'Z' {
			c2 += 'a' - 'A'
		}
		if c1 != c2 {
			return false
		}
	}
	return true
}

// Parse fills r from buf (a request line, headers, and a blank-line
// terminator). Every slice in r aliases buf directly. Field terminators are
// space, CR, LF, and NUL; a NUL anywhere in the request line or headers
// aborts the parse, matching the strict wire protocol's rejection of
// embedded nulls. Body is not scanned.
func Parse(buf []byte, r *Request) errors.Error {
	r.Reset()

	pos := 0
	n := len(buf)

	methodEnd := indexSpaceOrTerm(buf, pos)
	if methodEnd < 0 || buf[methodEnd] != ' ' {
		return ErrorParseMalformed.Error(nil)
	}
	r.Method = buf[pos:methodEnd]
	pos = methodEnd + 1

	targetEnd := indexSpaceOrTerm(buf, pos)
	if targetEnd < 0 || buf[targetEnd] != ' ' {
		return ErrorParseMalformed.Error(nil)
	}
	r.Target = buf[pos:targetEnd]
	pos = targetEnd + 1

	lineEnd := indexCRLFOrTerm(buf, pos)
	if lineEnd < 0 {
		return ErrorParseIncomplete.Error(nil)
	}
	r.Version = buf[pos:lineEnd]
	pos = skipCRLF(buf, lineEnd)

	for {
		if pos >= n {
			return ErrorParseIncomplete.Error(nil)
		}
		if buf[pos] == '\r' || buf[pos] == '\n' {
			pos = skipCRLF(buf, pos)
			break
		}

		colon := indexByte(buf, pos, ':')
		if colon < 0 {
			return ErrorParseMalformed.Error(nil)
		}
		name := trimTrailingSpace(buf[pos:colon])

		vstart := colon + 1
		for vstart < n && buf[vstart] == ' ' {
			vstart++
		}
		vend := indexCRLFOrTerm(buf, vstart)
		if vend < 0 {
			return ErrorParseIncomplete.Error(nil)
		}
		value := buf[vstart:vend]

		if r.NumHdr < MaxHeaders {
			r.Headers[r.NumHdr] = Header{Name: name, Value: value}
			r.NumHdr++
		}

		pos = skipCRLF(buf, vend)
	}

	r.Body = buf[pos:]
	return nil
}

func indexSpaceOrTerm(buf []byte, from int) int {
	for i := from; i < len(buf); i++ {
		switch buf[i] {
		case ' ', '\r', '\n', 0:
			return i
		}
	}
	return -1
}

func indexCRLFOrTerm(buf []byte, from int) int {
	for i := from; i < len(buf); i++ {
		switch buf[i] {
		case '\r', '\n', 0:
			return i
		}
	}
	return -1
}

func indexByte(buf []byte, from int, c byte) int {
	for i := from; i < len(buf); i++ {
		if buf[i] == c {
			return i
		}
		if buf[i] == '\r' || buf[i] == '\n' || buf[i] == 0 {
			return -1
		}
	}
	return -1
}

func trimTrailingSpace(b []byte) []byte {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return b[:end]
}

// skipCRLF advances past a CRLF, bare LF, or bare CR starting at i.
func skipCRLF(buf []byte, i int) int {
	if i >= len(buf) {
		return i
	}
	if buf[i] == '\r' {
		i++
		if i < len(buf) && buf[i] == '\n' {
			i++
		}
		return i
	}
	if buf[i] == '\n' {
		return i + 1
	}
	return i
}
