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

// Package h1conn is the HTTP/1.1 connection state machine: InFlight ->
// (WillUpgrade | Shutdown) -> (Upgraded | Shutdown) -> Closed, including
// the upgrade detection policy and the rewind buffer hand-off.
package h1conn

// Options are the per-connection tunables. Defaults enable everything
// except PipelineFlush, with a 400KiB read buffer.
type Options struct {
	// AllowHalfClose makes Shutdown call CloseWrite on the underlying stream
	// before the full Close.
	AllowHalfClose bool
	// Vectored enables net.Buffers-based vectored writes for chunked frames.
	Vectored bool
	// KeepAlive allows more than one request per connection.
	KeepAlive bool
	// MaxReadBuffer sizes the engine's read buffer.
	MaxReadBuffer int
	// PipelineFlush, when true, skips the flush after each response; output
	// is flushed before reading the next request when none is already
	// buffered, or at connection teardown, trading latency for throughput
	// under pipelining.
	PipelineFlush bool
}

// DefaultOptions is the recommended starting point for production use.
var DefaultOptions = Options{
	AllowHalfClose: true,
	Vectored:       true,
	KeepAlive:      true,
	MaxReadBuffer:  400 * 1024,
	PipelineFlush:  false,
}
