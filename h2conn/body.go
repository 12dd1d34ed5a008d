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

package h2conn

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/nabbar/httpcore/streambody"
)

var errStreamReset = errors.New("h2conn: stream reset by peer")

// requestBody adapts the DATA frames the read loop delivers for one stream
// into a streambody.Body, the H2 analogue of h1conn's requestBody.
type requestBody struct {
	ch     chan []byte
	ended  atomic.Bool
	doneMu sync.Mutex
	err    error
	length uint64
	hasLen bool
}

var _ streambody.Body = (*requestBody)(nil)

func newRequestBody(length uint64, hasLength bool) *requestBody {
	return &requestBody{ch: make(chan []byte, 8), length: length, hasLen: hasLength}
}

// push delivers one DATA frame's payload. Never called again after finish.
func (b *requestBody) push(data []byte) {
	if len(data) == 0 {
		return
	}
	b.ch <- data
}

// finish marks the body complete, with err nil for a normal END_STREAM.
func (b *requestBody) finish(err error, trailer http.Header) {
	if !b.ended.CompareAndSwap(false, true) {
		return
	}
	b.doneMu.Lock()
	b.err = err
	b.doneMu.Unlock()
	_ = trailer
	close(b.ch)
}

func (b *requestBody) Next(ctx context.Context) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case chunk, ok := <-b.ch:
		if ok {
			return chunk, nil
		}
		b.doneMu.Lock()
		err := b.err
		b.doneMu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, streambody.EOF
	}
}

func (b *requestBody) Trailers(context.Context) (http.Header, error) { return nil, nil }
func (b *requestBody) IsEndStream() bool                             { return b.ended.Load() }
func (b *requestBody) ContentLength() (uint64, bool)                 { return b.length, b.hasLen }

// contentLength mirrors h1conn's helper: prefer the already-parsed header.
func contentLength(h http.Header) (uint64, bool) {
	v := h.Get("Content-Length")
	if v == "" {
		return 0, false
	}
	var n uint64
	for _, c := range []byte(v) {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint64(c-'0')
	}
	return n, true
}
