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

// Command staticd serves a document root over HTTP/1.1 with optional TLS,
// using an epoll/kqueue/event-ports/poll readiness poller per platform
// instead of the standard net/http server loop.
package main

import (
	"errors"
	"os"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nabbar/staticd/config"
	"github.com/nabbar/staticd/logging"
	"github.com/nabbar/staticd/metrics"
	"github.com/nabbar/staticd/supervisor"
)

func main() {
	log := logging.New(os.Stderr, logrus.InfoLevel)
	reg := metrics.New(nil)

	cmd := config.NewRootCommand("staticd", func(cfg *config.Config) error {
		s, err := supervisor.New(cfg, log, reg)
		if err != nil {
			return err
		}
		return s.Run()
	})

	if err := cmd.Execute(); err != nil {
		log.Error("startup failed", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a startup failure to the OS errno of its root cause when
// one is identifiable, per spec.md section 6; otherwise a generic failure
// code is used.
func exitCode(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 1
}
