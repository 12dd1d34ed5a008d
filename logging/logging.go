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

// Package logging provides the dependency-injection point every subsystem in
// this module uses for structured logging, without pulling in a full logging
// framework of its own.
package logging

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// FuncLog returns the logger to use. Subsystems call it lazily on each log
// statement rather than caching the *logrus.Entry, so callers can swap the
// underlying logger (e.g. to attach per-connection fields) between calls.
type FuncLog func() *logrus.Entry

var (
	defOnce sync.Once
	defLog  *logrus.Logger
)

func defaultLogger() *logrus.Logger {
	defOnce.Do(func() {
		defLog = logrus.New()
		defLog.SetLevel(logrus.InfoLevel)
	})
	return defLog
}

// Default is the FuncLog used when a subsystem is constructed with a nil
// FuncLog: a package-level logrus.Logger at Info level, tagged with the
// "httpcore" logger field.
func Default() *logrus.Entry {
	return defaultLogger().WithField("logger", "httpcore")
}

// Pick returns f if non-nil, otherwise a FuncLog backed by Default.
func Pick(f FuncLog) FuncLog {
	if f != nil {
		return f
	}
	return Default
}

// With scopes a FuncLog to a named component, tagging every log line it
// produces with that component's name.
func With(f FuncLog, component string) FuncLog {
	f = Pick(f)
	return func() *logrus.Entry {
		return f().WithField("component", component)
	}
}
