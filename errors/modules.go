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

// Code space reserved per package. Each package claims a block of 100
// (transport and tlsconfig split the 400 block, 50 codes each) and
// declares its own codes as `iota + MinPkgXxx` above it, the same scheme
// httpserver/error.go used for MinPkgHttpServer.
const (
	MinPkgSlab       = 100
	MinPkgFdMap      = 200
	MinPkgPoller     = 300
	MinPkgTransport  = 400
	MinPkgTLSConfig  = 450
	MinPkgHTTPEngine = 500
	MinPkgJob        = 600
	MinPkgManager    = 700
	MinPkgWorker     = 800
	MinPkgListener   = 900
	MinPkgConfig     = 1000
	MinPkgSupervisor = 1100
	MinPkgMetrics    = 1200

	MinAvailable = 2000
)
