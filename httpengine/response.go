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

package httpengine

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

// Variant distinguishes how a Response's body, if any, is delivered.
type Variant uint8

const (
	HeadOnly Variant = iota
	StringBody
	FileBody
)

// Server is the value sent in every response's Server header.
const Server = "staticd"

// dateFormat is RFC 1123 rendered in GMT, matching the wire protocol's Date
// and Last-Modified header requirement without pulling in net/http just for
// its TimeFormat constant.
const dateFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

// Response is the result of building a reply to one request. Head holds the
// pre-formatted status line and headers; Body holds a small HTML payload
// for StringBody variants; File/FileSize are populated for FileBody.
type Response struct {
	Variant     Variant
	Head        []byte
	Body        []byte
	File        *os.File
	FileSize    int64
	ShouldClose bool
}

// Close releases the response's open file, if any. Safe to call on any
// variant.
func (r *Response) Close() {
	if r.File != nil {
		_ = r.File.Close()
		r.File = nil
	}
}

// Build dispatches on req.Method and produces the corresponding Response,
// resolving and opening a file under root for GET/HEAD.
func Build(req *Request, root string, canonicalRoot string) *Response {
	switch string(req.Method) {
	case "GET":
		return buildFileResponse(req, root, canonicalRoot, false)
	case "HEAD":
		return buildFileResponse(req, root, canonicalRoot, true)
	case "OPTIONS":
		return buildOptions()
	default:
		return buildStatus(405, "Method Not Allowed", true)
	}
}

// BuildParseFailure builds the 400 response for a request the parser
// rejected.
func BuildParseFailure() *Response {
	return buildStatus(400, "Bad Request", true)
}

// BuildInternalError builds the 500 response for a job-signaled internal
// error.
func BuildInternalError() *Response {
	return buildStatus(500, "Internal Server Error", true)
}

func buildFileResponse(req *Request, root, canonicalRoot string, headOnly bool) *Response {
	path, info, err := ResolvePath(req.Target, root, canonicalRoot)
	if err != nil {
		return buildStatus(404, "Not Found", false)
	}

	f, oerr := os.Open(path)
	if oerr != nil {
		return buildStatus(404, "Not Found", false)
	}

	fi := *info
	mime := detectMIME(path)

	var head bytes.Buffer
	fmt.Fprintf(&head, "HTTP/1.1 200 OK\r\n")
	fmt.Fprintf(&head, "Content-Length: %d\r\n", fi.Size())
	fmt.Fprintf(&head, "Content-Type: %s\r\n", mime)
	fmt.Fprintf(&head, "Date: %s\r\n", time.Now().UTC().Format(dateFormat))
	fmt.Fprintf(&head, "Last-Modified: %s\r\n", fi.ModTime().UTC().Format(dateFormat))
	fmt.Fprintf(&head, "Server: %s\r\n", Server)
	fmt.Fprintf(&head, "Accept-Ranges: none\r\n")
	fmt.Fprintf(&head, "Cache-Control: public, max-age=86400\r\n")
	fmt.Fprintf(&head, "Connection: keep-alive\r\n\r\n")

	variant := FileBody
	if headOnly {
		variant = HeadOnly
		_ = f.Close()
		f = nil
	}

	return &Response{
		Variant:  variant,
		Head:     head.Bytes(),
		File:     f,
		FileSize: fi.Size(),
	}
}

func buildOptions() *Response {
	var head bytes.Buffer
	fmt.Fprintf(&head, "HTTP/1.1 204 No Content\r\n")
	fmt.Fprintf(&head, "Allow: GET, HEAD, OPTIONS\r\n")
	fmt.Fprintf(&head, "Server: %s\r\n", Server)
	fmt.Fprintf(&head, "Connection: keep-alive\r\n\r\n")

	return &Response{Variant: HeadOnly, Head: head.Bytes()}
}

func buildStatus(code int, text string, close bool) *Response {
	body := []byte(fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", code, text))

	conn := "keep-alive"
	if close {
		conn = "close"
	}

	var head bytes.Buffer
	fmt.Fprintf(&head, "HTTP/1.1 %d %s\r\n", code, text)
	fmt.Fprintf(&head, "Content-Length: %d\r\n", len(body))
	fmt.Fprintf(&head, "Content-Type: text/html\r\n")
	fmt.Fprintf(&head, "Date: %s\r\n", time.Now().UTC().Format(dateFormat))
	fmt.Fprintf(&head, "Server: %s\r\n", Server)
	fmt.Fprintf(&head, "Connection: %s\r\n\r\n", conn)

	return &Response{
		Variant:     StringBody,
		Head:        head.Bytes(),
		Body:        body,
		ShouldClose: close,
	}
}

// HasMoreWrite reports whether any head, body, or file bytes remain unsent
// given the counters tracked by the owning Job.
func (r *Response) HasMoreWrite(sentHead, sentBody, sentFile int64) bool {
	if sentHead < int64(len(r.Head)) {
		return true
	}
	switch r.Variant {
	case StringBody:
		return sentBody < int64(len(r.Body))
	case FileBody:
		return sentFile < r.FileSize
	}
	return false
}

func detectMIME(path string) string {
	m, err := mimetype.DetectFile(path)
	if err != nil || m == nil {
		return "application/octet-stream"
	}
	return m.String()
}
