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

// Package job binds one accepted connection to its HTTP state and drives the
// READ -> WRITE -> (reset | release) state machine described for the
// connection lifecycle. Jobs are never heap-allocated on the hot path; the
// Manager hands out slots from a fixed-size pool (see package manager).
package job

import (
	"github.com/google/uuid"

	"github.com/nabbar/staticd/httpengine"
	"github.com/nabbar/staticd/metrics"
	"github.com/nabbar/staticd/transport"
)

// State is where a Job sits in its read/write cycle.
type State uint8

const (
	StateRead State = iota
	StateWrite
)

// Job is a Connection plus its in-flight HTTP request/response state. The
// zero value is not usable; the Manager initializes ReadBuf once per pool
// slot and calls Init on every acquire.
type Job struct {
	// ID correlates this job's log lines across its acquire-to-release
	// lifetime; it carries no hot-path meaning beyond that (the Manager
	// pool index is what identifies the slot).
	ID uuid.UUID

	Conn  *transport.Connection
	State State

	ReadBuf []byte
	ReadLen int

	Request  httpengine.Request
	Response *httpengine.Response

	SentHead int64
	SentBody int64
	SentFile int64

	DocumentRoot  string
	CanonicalRoot string
}

// Init prepares a freshly acquired slot for a new connection.
func (j *Job) Init(conn *transport.Connection, documentRoot, canonicalRoot string) {
	j.ID = uuid.New()
	j.Conn = conn
	j.DocumentRoot = documentRoot
	j.CanonicalRoot = canonicalRoot
	j.reset()
}

// Reset clears HTTP state for a keep-alive reuse of the same Connection.
func (j *Job) Reset() {
	j.reset()
}

func (j *Job) reset() {
	if j.Response != nil {
		j.Response.Close()
		j.Response = nil
	}
	j.State = StateRead
	j.ReadLen = 0
	j.SentHead = 0
	j.SentBody = 0
	j.SentFile = 0
	j.Request.Reset()
}

// Release tears the job down before it is returned to the Manager: closes
// the response (if any open file) and the connection.
func (j *Job) Release() {
	if j.Response != nil {
		j.Response.Close()
		j.Response = nil
	}
	if j.Conn != nil {
		_ = j.Conn.Close()
		j.Conn = nil
	}
}

// HasMoreWrite reports whether the interest invariant requires WRITE
// readiness: true iff any head, body, or file bytes remain unsent.
func (j *Job) HasMoreWrite() bool {
	if j.Response == nil {
		return false
	}
	return j.Response.HasMoreWrite(j.SentHead, j.SentBody, j.SentFile)
}

// ReadResult reports what a Read call wants the Worker to do next.
type ReadResult uint8

const (
	ReadWantMore   ReadResult = iota // drained to would-block, request incomplete
	ReadReadyWrite                   // a full request parsed, response built, ready for the Write piggyback
	ReadRelease                      // transport error or protocol violation that forces a close
)

// Read drains the connection into ReadBuf, attempts to parse a full request,
// and on success builds the Response. Any transport error transitions
// directly to ReadRelease per the error-handling rule that READ/WRITE
// transport failures always release the job.
func (j *Job) Read() ReadResult {
	if j.ReadLen >= len(j.ReadBuf) {
		j.Response = httpengine.BuildParseFailure()
		j.State = StateWrite
		return ReadReadyWrite
	}

	n, peerClosed, err := j.Conn.Receive(j.ReadBuf[j.ReadLen:])
	if err != nil {
		return ReadRelease
	}
	j.ReadLen += n

	if peerClosed && j.ReadLen == 0 {
		return ReadRelease
	}

	perr := httpengine.Parse(j.ReadBuf[:j.ReadLen], &j.Request)
	if perr != nil {
		if perr.HasCode(httpengine.ErrorParseIncomplete) {
			if peerClosed {
				return ReadRelease
			}
			return ReadWantMore
		}
		j.Response = httpengine.BuildParseFailure()
		j.State = StateWrite
		return ReadReadyWrite
	}

	j.Response = httpengine.Build(&j.Request, j.DocumentRoot, j.CanonicalRoot)
	j.State = StateWrite
	return ReadReadyWrite
}

// WriteResult reports what a Write call wants the Worker to do next.
type WriteResult uint8

const (
	WriteWantMore WriteResult = iota // partial send, keep WRITE interest
	WriteDone                        // response fully sent
	WriteRelease                     // transport error
)

// Write sends as much of the current Response as the socket will take
// without blocking: head first, then body or file.
func (j *Job) Write(scratch []byte, metricsReg *metrics.Registry) WriteResult {
	r := j.Response
	if r == nil {
		return WriteDone
	}

	if j.SentHead < int64(len(r.Head)) {
		n, err := j.Conn.Send(r.Head[j.SentHead:])
		if err != nil {
			return WriteRelease
		}
		metricsReg.AddBytesSent(n)
		j.SentHead += int64(n)
		if j.SentHead < int64(len(r.Head)) {
			return WriteWantMore
		}
	}

	switch r.Variant {
	case httpengine.StringBody:
		if j.SentBody < int64(len(r.Body)) {
			n, err := j.Conn.Send(r.Body[j.SentBody:])
			if err != nil {
				return WriteRelease
			}
			metricsReg.AddBytesSent(n)
			j.SentBody += int64(n)
			if j.SentBody < int64(len(r.Body)) {
				return WriteWantMore
			}
		}
	case httpengine.FileBody:
		if r.File != nil && j.SentFile < r.FileSize {
			n, err := j.Conn.SendFile(int(r.File.Fd()), j.SentFile, r.FileSize-j.SentFile, scratch)
			if err != nil {
				return WriteRelease
			}
			metricsReg.AddBytesSent(int(n))
			j.SentFile += n
			if j.SentFile < r.FileSize {
				return WriteWantMore
			}
		}
	}

	if j.shouldClose() {
		return WriteDone
	}

	j.reset()
	return WriteDone
}

func (j *Job) shouldClose() bool {
	if j.Response == nil {
		return false
	}
	return j.Response.ShouldClose
}

// ShouldCloseAfterWrite reports whether Write's most recent WriteDone result
// requires the Worker to release the Job instead of returning it to READ.
func (j *Job) ShouldCloseAfterWrite() bool {
	return j.shouldClose()
}
