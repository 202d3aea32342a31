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

// Package logging wires the Fields attribute model onto logrus. The
// supervisor holds a Logger and logs lifecycle/error/shutdown events through
// it; listeners, workers and jobs hold none. There is no access/request
// logging (out of scope).
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger logs at a fixed severity with a stable set of Fields, and can be
// specialized into a child Logger carrying additional Fields.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, err error, args ...interface{})
	Fatal(msg string, err error, args ...interface{})

	WithFields(f Fields) Logger
}

type logger struct {
	entry  *logrus.Entry
	fields Fields
}

// New builds a root Logger writing JSON lines to out at the given level.
func New(out io.Writer, level logrus.Level) Logger {
	if out == nil {
		out = os.Stderr
	}

	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(level)
	l.SetFormatter(&logrus.JSONFormatter{})

	return &logger{entry: logrus.NewEntry(l), fields: NewFields()}
}

func (o *logger) WithFields(f Fields) Logger {
	merged := o.fields.Merge(f)

	return &logger{
		entry:  o.entry.WithFields(merged.Logrus()),
		fields: merged,
	}
}

func (o *logger) Debug(msg string, args ...interface{}) {
	o.entry.Debug(fmt.Sprintf(msg, args...))
}

func (o *logger) Info(msg string, args ...interface{}) {
	o.entry.Info(fmt.Sprintf(msg, args...))
}

func (o *logger) Warn(msg string, args ...interface{}) {
	o.entry.Warn(fmt.Sprintf(msg, args...))
}

func (o *logger) Error(msg string, err error, args ...interface{}) {
	e := o.entry
	if err != nil {
		e = e.WithError(err)
	}
	e.Error(fmt.Sprintf(msg, args...))
}

func (o *logger) Fatal(msg string, err error, args ...interface{}) {
	e := o.entry
	if err != nil {
		e = e.WithError(err)
	}
	e.Fatal(fmt.Sprintf(msg, args...))
}
