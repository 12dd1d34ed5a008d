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

package streambody

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync/atomic"
)

// Bytes is a Body over an in-memory buffer, the common case for a Service
// handler that already has its whole response in hand (a fixed "hello"
// response body, say).
type Bytes struct {
	data    []byte
	read    bool
	trailer http.Header
}

// NewBytes returns a Body producing data in a single chunk.
func NewBytes(data []byte) *Bytes { return &Bytes{data: data} }

// NewBytesTrailer is like NewBytes but also exposes trailers after the data.
func NewBytesTrailer(data []byte, trailer http.Header) *Bytes {
	return &Bytes{data: data, trailer: trailer}
}

func (b *Bytes) Next(ctx context.Context) ([]byte, error) {
	if b.read {
		return nil, EOF
	}
	b.read = true
	if len(b.data) == 0 {
		return nil, EOF
	}
	return b.data, nil
}

func (b *Bytes) Trailers(context.Context) (http.Header, error) { return b.trailer, nil }
func (b *Bytes) IsEndStream() bool                              { return b.read }
func (b *Bytes) ContentLength() (uint64, bool)                  { return uint64(len(b.data)), true }

// Reader adapts an io.ReadCloser into a Body, reading chunkSize bytes at a
// time. The H1 engine wraps its request bodies in it: the engine owns a
// byte-stream reader, and the Service sees only the Body contract. The H2
// engine uses its own channel-fed request body instead.
type Reader struct {
	src       io.ReadCloser
	chunkSize int
	done      atomic.Bool
	length    uint64
	hasLength bool
}

// NewReader wraps src as a Body. hasLength/length describe Content-Length
// framing when known; pass hasLength=false for chunked/unknown-length
// bodies.
func NewReader(src io.ReadCloser, chunkSize int, length uint64, hasLength bool) *Reader {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	return &Reader{src: src, chunkSize: chunkSize, length: length, hasLength: hasLength}
}

func (r *Reader) Next(ctx context.Context) ([]byte, error) {
	if r.done.Load() {
		return nil, EOF
	}
	type result struct {
		buf []byte
		err error
	}
	ch := make(chan result, 1)
	go func() {
		buf := make([]byte, r.chunkSize)
		n, err := r.src.Read(buf)
		ch <- result{buf: buf[:n], err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			r.done.Store(true)
			if res.err == io.EOF {
				if len(res.buf) > 0 {
					return res.buf, nil
				}
				return nil, EOF
			}
			return nil, res.err
		}
		if len(res.buf) == 0 {
			return r.Next(ctx)
		}
		return res.buf, nil
	}
}

func (r *Reader) Trailers(context.Context) (http.Header, error) { return nil, nil }
func (r *Reader) IsEndStream() bool                              { return r.done.Load() }
func (r *Reader) ContentLength() (uint64, bool)                  { return r.length, r.hasLength }

// Drain reads every chunk of b into a single buffer, used by tests and by
// Service adapters that want the whole request body at once, e.g. an echo
// handler.
func Drain(ctx context.Context, b Body) ([]byte, http.Header, error) {
	var buf bytes.Buffer
	for {
		chunk, err := b.Next(ctx)
		if err == EOF {
			break
		}
		if err != nil {
			return nil, nil, err
		}
		buf.Write(chunk)
	}
	trailer, err := b.Trailers(ctx)
	if err != nil {
		return nil, nil, err
	}
	return buf.Bytes(), trailer, nil
}
