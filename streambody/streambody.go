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

// Package streambody is the single body contract used on both the request
// and response side: a lazy, finite sequence of byte chunks with optional
// trailers. Request and response bodies share one interface rather than two
// parallel abstractions; see DESIGN.md for the reasoning.
package streambody

import (
	"context"
	"net/http"
)

// SizeHint is the lower/optional-upper bound on the remaining body size.
type SizeHint struct {
	Lower uint64
	Upper *uint64 // nil means unknown upper bound
}

// Body is a lazy, finite, non-restartable sequence of byte chunks with an
// optional trailer HeaderMap produced once the sequence ends.
//
// Next blocks (respecting ctx) until a chunk is available, the stream ends
// (EOF, this package's sentinel), or an error occurs. It must not be called
// again after it has returned EOF or another non-nil error.
type Body interface {
	Next(ctx context.Context) ([]byte, error)

	// Trailers is called at most once, after Next has returned EOF. A nil,
	// nil result means no trailers.
	Trailers(ctx context.Context) (http.Header, error)

	// IsEndStream may conservatively report false even when the stream has in
	// fact ended; it must never report true for a stream that still has data.
	IsEndStream() bool

	// ContentLength returns the body's known length. ok is false when the
	// length is not known in advance, in which case chunked framing applies.
	ContentLength() (n uint64, ok bool)
}

// Empty is a Body with no data and no trailers, content-length 0.
type Empty struct{}

func (Empty) Next(context.Context) ([]byte, error)             { return nil, errEOF }
func (Empty) Trailers(context.Context) (http.Header, error)    { return nil, nil }
func (Empty) IsEndStream() bool                                { return true }
func (Empty) ContentLength() (uint64, bool)                    { return 0, true }

var errEOF = errEndOfBody{}

type errEndOfBody struct{}

func (errEndOfBody) Error() string { return "streambody: end of stream" }

// EOF is the sentinel returned by Body.Next once the sequence is exhausted.
// Kept distinct from io.EOF so callers can't accidentally satisfy this
// contract with a bare io.Reader wrapper that returns io.EOF for other
// reasons (short reads, etc).
var EOF error = errEOF
