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

// Package herr provides the numeric-code error registry shared by every
// subsystem of this module: listener, acceptor, h1conn, h2conn and server
// each own a contiguous code range and register their own messages.
package herr

import (
	"errors"
	"fmt"
)

// Code is a numeric error classification, grouped by subsystem the way HTTP
// status codes group by class.
type Code uint32

const (
	Unknown Code = 0

	// Ranges: each subsystem owns a block of 100 codes.
	MinListener Code = 100
	MinAcceptor Code = 200
	MinH1       Code = 300
	MinH2       Code = 400
	MinServer   Code = 500
	MinUpgrade  Code = 600
)

var registry = make(map[Code]string)

// Register associates a human-readable message with a code. Called from each
// subsystem's init(), keeping every package's error messages next to the
// codes they describe.
func Register(code Code, message string) {
	registry[code] = message
}

func message(code Code) string {
	if m, ok := registry[code]; ok {
		return m
	}
	return "unknown error"
}

// Error is the error value produced by this module: a code, an optional
// parent error it wraps, and the message looked up from the registry.
type Error struct {
	code   Code
	parent error
}

// New builds an Error for code, optionally wrapping parent.
func New(code Code, parent error) *Error {
	return &Error{code: code, parent: parent}
}

func (e *Error) Code() Code { return e.code }

func (e *Error) Error() string {
	if e.parent != nil {
		return fmt.Sprintf("[%d] %s: %s", e.code, message(e.code), e.parent.Error())
	}
	return fmt.Sprintf("[%d] %s", e.code, message(e.code))
}

func (e *Error) Unwrap() error { return e.parent }

// Is reports whether target is an *Error with the same code, supporting
// errors.Is(err, herr.New(SomeCode, nil)).
func (e *Error) Is(target error) bool {
	var o *Error
	if errors.As(target, &o) {
		return o.code == e.code
	}
	return false
}
